package binder

import (
	"github.com/cadenzamusic/cadenza/pkg/models"
	"github.com/go-playground/validator/v10"
)

const (
	tagKind       = "tagkind"
	refreshReason = "refreshreason"
	year          = "year"

	minYear = 1000
	maxYear = 9999
)

var refreshReasons = []string{
	models.RefreshReasonAppLaunch,
	models.RefreshReasonUserInitiated,
	models.RefreshReasonBackground,
	models.RefreshReasonReset,
}

func tagKindValidator(fl validator.FieldLevel) bool {
	return contains(models.TagKinds, fl.Field().String())
}

func refreshReasonValidator(fl validator.FieldLevel) bool {
	return contains(refreshReasons, fl.Field().String())
}

// yearValidator accepts four-digit years. Use omitempty on optional fields.
func yearValidator(fl validator.FieldLevel) bool {
	y := fl.Field().Int()
	return y >= minYear && y <= maxYear
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
