package tokens

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproximate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"single short word", "Hi", 1},
		{"rounds up", "Hello", 2},
		{"word floor", "a b c d e", 5},
		{"runes not bytes", "äöüß", 1},
		{"long word", "abcdefghijklmnop", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Approximate(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChatMLCounter(t *testing.T) {
	var seen string
	count := ChatMLCounter(func(text string) (int, error) {
		seen = text
		return 7, nil
	})

	n, err := count("user", "Hello")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.Equal(t, "<|im_start|>user\nHello<|im_end|>", seen)
}

func TestChatMLCounter_DefaultAndErrors(t *testing.T) {
	n, err := ChatMLCounter(nil)("user", "Hello")
	require.NoError(t, err)
	plain, _ := Approximate("Hello")
	assert.Greater(t, n, plain)

	boom := errors.New("tokenizer unavailable")
	_, err = ChatMLCounter(func(string) (int, error) { return 0, boom })("user", "x")
	assert.ErrorIs(t, err, boom)
}
