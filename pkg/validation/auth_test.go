package validation

import (
	"strings"
	"testing"
)

func TestAuthRequestValidator_ValidateLoginRequest(t *testing.T) {
	validator := NewAuthRequestValidator()

	tests := []struct {
		name     string
		username string
		password string
		wantErr  bool
		errMsg   string
	}{
		{name: "valid request", username: "admin", password: "password123"},
		{name: "empty username", username: "", password: "password123", wantErr: true, errMsg: "username cannot be empty"},
		{name: "empty password", username: "admin", password: "", wantErr: true, errMsg: "password cannot be empty"},
		{name: "username too long", username: strings.Repeat("a", 51), password: "x", wantErr: true, errMsg: "at most 50"},
		{name: "password too long", username: "admin", password: strings.Repeat("p", 129), wantErr: true, errMsg: "at most 128"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.ValidateLoginRequest(tt.username, tt.password)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLoginRequest() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("ValidateLoginRequest() error message = %v, want containing %v", err.Error(), tt.errMsg)
			}
		})
	}
}
