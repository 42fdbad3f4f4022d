package validation

import (
	"regexp"

	"teamvault-backend/apperr"
	"teamvault-backend/models"
)

var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,50}$`)

// ValidateTags checks tag syntax and the per-file tag cap
func ValidateTags(tags []string) error {
	if len(tags) > models.MaxTagsPerFile {
		return apperr.NewValidation("TOO_MANY_TAGS",
			"at most %d tags per file, got %d", models.MaxTagsPerFile, len(tags))
	}
	for _, tag := range tags {
		if !tagPattern.MatchString(tag) {
			return apperr.NewValidation("INVALID_TAG",
				"tag %q must match [A-Za-z0-9_-]{1,50}", tag)
		}
	}
	return nil
}

// ValidateDescription checks the description length cap
func ValidateDescription(description string) error {
	if len(description) > models.MaxDescriptionLength {
		return apperr.NewValidation("DESCRIPTION_TOO_LONG",
			"description exceeds %d characters", models.MaxDescriptionLength)
	}
	return nil
}
