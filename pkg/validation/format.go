// Package validation provides common validation utilities.
package validation

import (
	"fmt"

	"github.com/iwvelando/boom-bust/pkg/constants"
)

// ValidateOutputFormat checks if the output format is one of the supported formats.
func ValidateOutputFormat(format string) error {
	if format != constants.OutputFormatPretty && format != constants.OutputFormatCSV {
		return fmt.Errorf("expected output format of %s or %s, got %s",
			constants.OutputFormatPretty, constants.OutputFormatCSV, format)
	}
	return nil
}

// ValidateBoatType checks a boat type from player input. Empty means the rowboat.
func ValidateBoatType(boat string) error {
	switch boat {
	case "", constants.BoatRow, constants.BoatMotor, constants.BoatTrawler:
		return nil
	}
	return fmt.Errorf("expected boat type of %s, %s or %s, got %s",
		constants.BoatRow, constants.BoatMotor, constants.BoatTrawler, boat)
}

// ValidateSavingsLevel checks a savings panel level. Empty means full service.
func ValidateSavingsLevel(level string) error {
	switch level {
	case "", constants.LevelFull, constants.LevelBasic:
		return nil
	}
	return fmt.Errorf("expected savings level of %s or %s, got %s",
		constants.LevelFull, constants.LevelBasic, level)
}
