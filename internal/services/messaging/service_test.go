package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"vehicle-counter-go/internal/models"
)

type recorder struct {
	subjects []string
	err      error
}

func (r *recorder) Publish(subject string, _ interface{}) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestFanoutDeliversToAll(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	f := Fanout{a, nil, b}

	assert.NoError(t, f.Publish("vehicles.crossings", map[string]int{"total": 1}))
	assert.Equal(t, []string{"vehicles.crossings"}, a.subjects)
	assert.Equal(t, []string{"vehicles.crossings"}, b.subjects)
}

func TestFanoutJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recorder{err: boom}, &recorder{}
	var pub models.MessagePublisher = Fanout{a, b}

	err := pub.Publish("s", nil)
	assert.ErrorIs(t, err, boom)
	// later publishers still receive the message
	assert.Len(t, b.subjects, 1)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish("s", struct{}{}))
}
