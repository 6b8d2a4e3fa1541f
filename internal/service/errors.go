// Package service holds the business rules of the board, meal and timetable
// features. Services return *models.AppError for every failure a handler
// should map to a status code.
package service

import (
	"errors"

	"schoolboard/internal/models"
)

// appErr passes AppErrors through and wraps anything else as Internal.
func appErr(err error) error {
	if err == nil {
		return nil
	}
	var ae *models.AppError
	if errors.As(err, &ae) {
		return ae
	}
	return models.NewInternalError(err)
}

func isNotFound(err error) bool {
	var ae *models.AppError
	return errors.As(err, &ae) && ae.Code == models.CodeNotFound
}
