// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package store

import (
	"regexp"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validNatsKey mirrors the key pattern accepted by JetStream KV.
var validNatsKey = regexp.MustCompile(`\A[-/_=\.a-zA-Z0-9]+\z`)

func TestKeyBuilder_EntityKey(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		id     string
		want   string
	}{
		{
			name: "plain id",
			id:   "m1",
			want: "/m1",
		},
		{
			name: "id with characters nats rejects",
			id:   "meeting #1 (weekly)+",
			want: "/meeting #1 (weekly)+",
		},
		{
			name: "id with slash",
			id:   "org/m1",
			want: "/org/m1",
		},
		{
			name:   "prefixed",
			prefix: "agent",
			id:     "a1",
			want:   "/agent/a1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb := NewKeyBuilder(tt.prefix)

			key := kb.EntityKey(tt.id)
			assert.Regexp(t, validNatsKey, key)

			decoded, err := kb.DecodeKey(key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decoded)
		})
	}
}

func TestKeyBuilder_EntityKeyIsStable(t *testing.T) {
	kb := NewKeyBuilder("")
	assert.Equal(t, kb.EntityKey("m1"), kb.EntityKey("m1"))
	assert.NotEqual(t, kb.EntityKey("m1"), kb.EntityKey("m2"))
}

func TestKeyBuilder_EncodeKey(t *testing.T) {
	kb := NewKeyBuilder("")

	t.Run("wildcards are kept", func(t *testing.T) {
		key, err := kb.EncodeKey("/m1/>")
		require.NoError(t, err)
		assert.Equal(t, "bTE.>", key)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := kb.EncodeKey("/")
		assert.ErrorIs(t, err, nats.ErrInvalidKey)
	})
}

func TestKeyBuilder_DecodeKey(t *testing.T) {
	kb := NewKeyBuilder("")

	t.Run("invalid encoding", func(t *testing.T) {
		_, err := kb.DecodeKey("not+base64!")
		assert.Error(t, err)
	})

	t.Run("empty key", func(t *testing.T) {
		_, err := kb.DecodeKey("")
		assert.ErrorIs(t, err, nats.ErrInvalidKey)
	})
}
