package validator

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/festivo/messaging-service/internal/api"
	"github.com/festivo/messaging-service/internal/model"
)

const maxContentLength = 2000

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

func (v *Validator) ValidateSendMessage(req *api.SendMessageRequest) error {
	if strings.TrimSpace(req.ReceiverId) == "" {
		return fmt.Errorf("%w: receiver_id is required", model.ErrValidation)
	}

	if _, err := uuid.Parse(req.ReceiverId); err != nil {
		return fmt.Errorf("%w: receiver_id must be a uuid", model.ErrValidation)
	}

	if strings.TrimSpace(req.Content) == "" {
		return fmt.Errorf("%w: content cannot be empty", model.ErrValidation)
	}

	if len([]rune(req.Content)) > maxContentLength {
		return fmt.Errorf("%w: content exceeds maximum length of %d characters", model.ErrValidation, maxContentLength)
	}

	if req.BookingId != nil && *req.BookingId != "" {
		if _, err := uuid.Parse(*req.BookingId); err != nil {
			return fmt.Errorf("%w: booking_id must be a uuid", model.ErrValidation)
		}
	}

	return nil
}

func (v *Validator) ValidateMarkRead(req *api.MarkReadRequest) error {
	if strings.TrimSpace(req.SenderId) == "" {
		return fmt.Errorf("%w: sender_id is required", model.ErrValidation)
	}

	if _, err := uuid.Parse(req.SenderId); err != nil {
		return fmt.Errorf("%w: sender_id must be a uuid", model.ErrValidation)
	}

	return nil
}
