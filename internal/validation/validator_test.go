// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

package validation

import (
	"errors"
	"strings"
	"testing"
)

type signupForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func TestValidateStructOK(t *testing.T) {
	t.Parallel()
	form := signupForm{Email: "user@example.com", Password: "longenough"}
	if err := ValidateStruct(&form); err != nil {
		t.Errorf("ValidateStruct() error = %v, want nil", err)
	}
}

func TestValidateStructFailures(t *testing.T) {
	t.Parallel()
	form := signupForm{Email: "not-an-email", Password: "short"}
	err := ValidateStruct(&form)
	if err == nil {
		t.Fatal("ValidateStruct() error = nil, want validation error")
	}

	var ve *RequestValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error type = %T, want *RequestValidationError", err)
	}
	if len(ve.Errors()) != 2 {
		t.Errorf("error count = %d, want 2", len(ve.Errors()))
	}
	if !strings.Contains(ve.Error(), "valid email") {
		t.Errorf("message %q missing email failure", ve.Error())
	}
	if !strings.Contains(ve.Error(), "at least 8") {
		t.Errorf("message %q missing min-length failure", ve.Error())
	}
}

func TestValidateStructRequired(t *testing.T) {
	t.Parallel()
	err := ValidateStruct(&signupForm{})
	if err == nil {
		t.Fatal("ValidateStruct() error = nil for empty struct")
	}
	if !strings.Contains(err.Error(), "Email is required") {
		t.Errorf("message %q missing required failure", err.Error())
	}
}
