package validate

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmail(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"a@b.co", true},
		{"learner@englishpod.io", true},
		{"first.last@sub.example.com", true},
		{"a@b", false},
		{"a b@c.com", false},
		{"@b.com", false},
		{"a@.com", false},
		{"", false},
		{"plainaddress", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Email(tt.input); got != tt.want {
				t.Errorf("Email(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"meets all rules", "Abcde1!", true},
		{"no uppercase", "abcde1!", false},
		{"no symbol", "Abcdef", false},
		{"too short", "Ab1!", false},
		{"exactly six characters", "Abcd1!", true},
		{"extended symbol accepted", "Abcdef_", true},
		{"extended bracket accepted", "Abcdef[", true},
		{"digits only", "123456", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Password(tt.input); got != tt.want {
				t.Errorf("Password(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestPasswordsMatch(t *testing.T) {
	if !PasswordsMatch("Abc123!", "Abc123!") {
		t.Error("identical passwords must match")
	}
	if PasswordsMatch("Abc123!", "abc123!") {
		t.Error("comparison must be case-sensitive")
	}
	if PasswordsMatch("Abc123!", "Abc123! ") {
		t.Error("no trimming or normalization")
	}
}

func TestRegisterValidators(t *testing.T) {
	v := validator.New()
	require.NoError(t, RegisterValidators(v))

	type form struct {
		Email    string `validate:"formemail"`
		Password string `validate:"strongpwd"`
	}

	assert.NoError(t, v.Struct(form{Email: "a@b.co", Password: "Abcde1!"}))
	assert.Error(t, v.Struct(form{Email: "a@b", Password: "Abcde1!"}))
	assert.Error(t, v.Struct(form{Email: "a@b.co", Password: "abcde1!"}))
}
