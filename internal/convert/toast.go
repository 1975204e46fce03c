package convert

import (
	"strings"

	"site2apk/internal/notify"
	"site2apk/internal/validate"
)

// Catalog supplies user-facing text by key.
type Catalog interface {
	Text(key string) string
}

// ToastFor renders the single notification of a finished attempt.
func ToastFor(c Catalog, failure *Failure, dl *Download, note string) notify.Toast {
	if failure == nil {
		desc := ""
		if dl != nil {
			desc = strings.ReplaceAll(c.Text("toast_success_description"), "{file}", dl.FileName)
		}

		if note = strings.TrimSpace(note); note != "" {
			desc = strings.TrimSpace(desc + "\n" + note)
		}

		return notify.Toast{Title: c.Text("toast_success_title"), Description: desc, Variant: notify.VariantDefault}
	}

	title, desc := failureText(c, failure)

	return notify.Toast{Title: title, Description: desc, Variant: notify.VariantDestructive}
}

func failureText(c Catalog, f *Failure) (string, string) {
	switch f.Kind {
	case KindIncompleteForm:
		return c.Text("toast_incomplete_title"), c.Text("toast_incomplete_description")
	case KindInvalidInput:
		switch f.Input {
		case validate.WrongIconType:
			return c.Text("toast_invalid_icon_type_title"), c.Text("toast_invalid_icon_type_description")
		case validate.WrongIconDimensions:
			return c.Text("toast_invalid_icon_size_title"), c.Text("toast_invalid_icon_size_description")
		default:
			return c.Text("toast_invalid_archive_title"), c.Text("toast_invalid_archive_description")
		}
	case KindEndpointNotConfigured:
		return c.Text("toast_endpoint_missing_title"), c.Text("toast_endpoint_missing_description")
	case KindIORead:
		return c.Text("toast_read_failed_title"), c.Text("toast_read_failed_description")
	case KindMalformedResponse:
		return c.Text("toast_failed_title"), c.Text("toast_malformed_description")
	case KindNetworkFailure:
		return c.Text("toast_failed_title"), c.Text("toast_network_description")
	case KindRemoteFailure:
		if f.Message != "" {
			return c.Text("toast_failed_title"), f.Message
		}
		return c.Text("toast_failed_title"), c.Text("toast_failed_description")
	default:
		return c.Text("toast_failed_title"), c.Text("toast_failed_description")
	}
}
