package registrations

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mphomathabathe/Baobab/internal/mailer"
	"github.com/mphomathabathe/Baobab/internal/models"
)

const (
	confirmationSubject = "Registration"
	pendingMessage      = "\nregistration is pending confirmation on receipt of payment.\n\n"
	noAnswersSummary    = "\nNo valid questions were answered"
)

// Confirmation is everything needed to email a registration summary.
type Confirmation struct {
	User           *models.AppUser
	Questions      []models.RegistrationQuestion
	Answers        []models.RegistrationAnswer
	Confirmed      bool
	RegistrationID uint
	// Organisation, when it sets email_from, becomes the sender.
	Organisation *models.Organisation
}

// Notifier emails registration confirmations. Failures are logged, never returned.
type Notifier struct {
	mailer mailer.Mailer
	logger *zap.Logger
}

// NewNotifier creates a confirmation notifier.
func NewNotifier(m mailer.Mailer, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{mailer: m, logger: logger}
}

// SendConfirmation composes and sends the confirmation email for conf.
func (n *Notifier) SendConfirmation(ctx context.Context, conf Confirmation) {
	if conf.User == nil {
		n.logger.Warn("no user for registration confirmation", zap.Uint("registration_id", conf.RegistrationID))
		return
	}
	if len(conf.Answers) == 0 {
		n.logger.Warn("found no answers associated with registration", zap.Uint("registration_id", conf.RegistrationID))
	}
	if len(conf.Questions) == 0 {
		n.logger.Warn("found no questions associated with registration form", zap.Uint("registration_id", conf.RegistrationID))
	}

	msg := mailer.Message{
		To:             conf.User.Email,
		Subject:        confirmationSubject,
		BodyText:       BuildConfirmationBody(conf.User, conf.Questions, conf.Answers, conf.Confirmed),
		EmailType:      models.EmailTypeRegistrationConfirmation,
		RegistrationID: conf.RegistrationID,
	}
	if org := conf.Organisation; org != nil && org.EmailFrom != nil && *org.EmailFrom != "" {
		msg.From = *org.EmailFrom
		msg.FromName = org.Name
	}

	if err := n.mailer.Send(ctx, msg); err != nil {
		n.logger.Error("could not send confirmation email",
			zap.Error(err),
			zap.Uint("registration_id", conf.RegistrationID),
			zap.Uint("user_id", conf.User.ID),
		)
		return
	}
	n.logger.Info("confirmation email dispatched", zap.Uint("registration_id", conf.RegistrationID))
}

// BuildConfirmationBody renders the plaintext confirmation: greeting, status line and one
// block per answer whose question is known.
func BuildConfirmationBody(user *models.AppUser, questions []models.RegistrationQuestion, answers []models.RegistrationAnswer, confirmed bool) string {
	byID := make(map[uint]models.RegistrationQuestion, len(questions))
	for _, q := range questions {
		byID[q.ID] = q
	}

	var summary strings.Builder
	for _, a := range answers {
		q, ok := byID[a.RegistrationQuestionID]
		if !ok {
			continue
		}
		summary.WriteString("Question heading: " + q.Headline)
		summary.WriteString("\nQuestion Description: " + q.Description)
		summary.WriteString("\nAnswer: " + RenderAnswerValue(a, q) + "\n")
	}
	body := summary.String()
	if body == "" {
		body = noAnswersSummary
	}

	return Greeting(user.UserTitle, user.Firstname, user.Lastname) + confirmedMessage(confirmed) + "\n\n" + body
}

// Greeting returns the salutation line, skipping empty name parts.
func Greeting(title, firstname, lastname string) string {
	name := strings.Join(strings.Fields(strings.Join([]string{title, firstname, lastname}, " ")), " ")
	if name == "" {
		return "Dear applicant,"
	}
	return "Dear " + name + ","
}

func confirmedMessage(confirmed bool) string {
	if confirmed {
		return ""
	}
	return pendingMessage
}
