package sortname

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForArtist(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"The Beatles", "Beatles, The"},
		{"the national", "national, the"},
		{"A Tribe Called Quest", "Tribe Called Quest, A"},
		{"Die Ärzte", "Ärzte, Die"},
		{"Les Négresses Vertes", "Négresses Vertes, Les"},
		{"Theory of a Deadman", "Theory of a Deadman"},
		{"The", "The"},
		{"Björk", "Björk"},
		{"  The   Cure ", "Cure, The"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ForArtist(tt.in))
		})
	}
}

func TestForTitle(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Love Supreme, A", ForTitle("A Love Supreme"))
	assert.Equal(t, "Dark Side of the Moon, The", ForTitle("The Dark Side of the Moon"))
	assert.Equal(t, "Kind of Blue", ForTitle("Kind of Blue"))
}

func TestResolve(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Smiths", Resolve(" Smiths ", "The Smiths"))
	assert.Equal(t, "Smiths, The", Resolve("", "The Smiths"))
}
