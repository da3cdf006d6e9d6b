package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	smsPattern   = regexp.MustCompile(`^\+?[0-9\s\-()]{10,15}$`)
	pushPattern  = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)
)

// ValidateRecipient checks that a raw recipient string is plausible for the
// channel type. Webhook and custom API recipients are free-form identifiers.
func ValidateRecipient(channelType ChannelType, recipient string) error {
	trimmed := strings.TrimSpace(recipient)
	if trimmed == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}

	switch channelType {
	case ChannelTypeEmail:
		if !emailPattern.MatchString(trimmed) {
			return fmt.Errorf("%w: %q is not a valid email address", ErrValidation, recipient)
		}
	case ChannelTypeSMS:
		if !smsPattern.MatchString(trimmed) {
			return fmt.Errorf("%w: %q is not a valid phone number", ErrValidation, recipient)
		}
	case ChannelTypePush:
		if !pushPattern.MatchString(trimmed) {
			return fmt.Errorf("%w: %q is not a valid device token", ErrValidation, recipient)
		}
	case ChannelTypeWebhook, ChannelTypeCustomAPI:
		// Non-empty is enough for free-form recipients.
	}

	return nil
}
