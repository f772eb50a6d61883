package queue

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewJob_WrapsPayload(t *testing.T) {
	p := EmailPayload{
		EmailType:      "registration_confirmation",
		RegistrationID: 7,
		RecipientEmail: "ada@example.com",
		Subject:        "Registration",
		BodyText:       "Dear Dr Ada Lovelace,",
	}
	job, err := NewJob(JobTypeEmail, p)
	require.NoError(t, err)
	require.NotEmpty(t, job.ID)
	require.Equal(t, JobTypeEmail, job.Type)
	require.Zero(t, job.Attempt)

	var got EmailPayload
	require.NoError(t, json.Unmarshal(job.Payload, &got))
	require.Equal(t, p, got)
}

func TestNewJob_UniqueIDs(t *testing.T) {
	a, err := NewJob(JobTypeEmail, EmailPayload{})
	require.NoError(t, err)
	b, err := NewJob(JobTypeEmail, EmailPayload{})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, b.ID)
}
