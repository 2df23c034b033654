package runtime

import (
	"chat-relay/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSession_Close_Only_Once(t *testing.T) {
	req := require.New(t)
	session := NewSession(newRecorder("c1"))

	req.Equal(domain.Anonymous, session.State())
	req.Equal(domain.Anonymous, session.close())
	req.Equal(domain.Closed, session.close())

	_, ok := session.Identity()
	req.False(ok)
	req.False(session.OpenedAt().IsZero())
}
