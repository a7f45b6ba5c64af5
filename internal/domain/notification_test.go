package domain

import (
	"errors"
	"testing"
)

func TestInAppNotification_Validate(t *testing.T) {
	t.Parallel()

	valid := &InAppNotification{UserID: "user-1", Title: "t", Message: "m"}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for name, n := range map[string]*InAppNotification{
		"nil":           nil,
		"blank user":    {UserID: "  ", Title: "t", Message: "m"},
		"blank title":   {UserID: "user-1", Title: " ", Message: "m"},
		"blank message": {UserID: "user-1", Title: "t", Message: ""},
	} {
		if err := n.Validate(); !errors.Is(err, ErrValidation) {
			t.Errorf("%s: Validate() = %v, want ErrValidation", name, err)
		}
	}
}
