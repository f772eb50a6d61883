package registrations

import "github.com/mphomathabathe/Baobab/internal/models"

// UploadedFilePlaceholder replaces file references in human-facing output.
const UploadedFilePlaceholder = "Uploaded File"

// RenderAnswerValue returns the text a person should see for answer.
// Multi-choice values map to their option label, falling back to the raw value when no
// option matches; file answers never expose the stored object key.
func RenderAnswerValue(answer models.RegistrationAnswer, question models.RegistrationQuestion) string {
	switch question.Type {
	case models.QuestionTypeMultiChoice:
		for _, o := range question.Options {
			if o.Value == answer.Value {
				return o.Label
			}
		}
	case models.QuestionTypeFile:
		if answer.Value != "" {
			return UploadedFilePlaceholder
		}
	}
	return answer.Value
}
