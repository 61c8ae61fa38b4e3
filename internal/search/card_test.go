package search

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// item renders a minimal result item the way the people search does
func item(name, href, action string) string {
	return fmt.Sprintf(`<li class="reusable-search__result-container">
  <span class="entity-result__title-text"><a href=%q><span dir="ltr"><span aria-hidden="true">%s</span></span></a></span>
  <div class="entity-result__primary-subtitle">Engineer</div>
  <div class="entity-result__actions"><button class="artdeco-button"><span class="artdeco-button__text">%s</span></button></div>
</li>`, href, name, action)
}

func TestParseCardFixture(t *testing.T) {
	html, err := os.ReadFile("testdata/result_item.html")
	require.NoError(t, err)

	card, err := ParseCard(string(html))
	require.NoError(t, err)

	assert.Equal(t, Card{
		ActionLabel: "Connect",
		ProfileURL:  "https://www.linkedin.com/in/priya-raman-1a2b3c",
		Name:        "Priya Raman",
		Headline:    "Site Reliability Engineer at Dell Technologies",
		Location:    "Bengaluru, Karnataka, India",
	}, card)
	assert.True(t, card.IsConnectable())
}

func TestParseCardActions(t *testing.T) {
	tests := []struct {
		action      string
		connectable bool
	}{
		{"Connect", true},
		{"connect", true},
		{"Follow", false},
		{"Message", false},
		{"Pending", false},
	}

	for _, tt := range tests {
		card, err := ParseCard(item("Jane", "/in/jane", tt.action))
		require.NoError(t, err)
		assert.Equal(t, tt.connectable, card.IsConnectable(), tt.action)
	}
}

func TestParseCardMissingFields(t *testing.T) {
	card, err := ParseCard(`<li><div class="entity-result__actions"><button class="artdeco-button">Connect</button></div></li>`)
	require.NoError(t, err)
	assert.Equal(t, "Connect", card.ActionLabel)
	assert.Empty(t, card.ProfileURL)
	assert.Empty(t, card.Name)

	_, err = ParseCard("")
	require.ErrorIs(t, err, ErrEmptyItem)
	_, err = ParseCard("  \n")
	require.ErrorIs(t, err, ErrEmptyItem)
}

func TestParseCardNameFallsBackToLinkText(t *testing.T) {
	card, err := ParseCard(`<li><a href="/in/sam-lee/"> Sam  Lee </a></li>`)
	require.NoError(t, err)
	assert.Equal(t, "Sam Lee", card.Name)
	assert.Equal(t, "https://www.linkedin.com/in/sam-lee", card.ProfileURL)
}

func TestCleanProfileURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.linkedin.com/in/jane-doe/", "https://www.linkedin.com/in/jane-doe"},
		{"https://www.linkedin.com/in/jane-doe?miniProfileUrn=abc", "https://www.linkedin.com/in/jane-doe"},
		{"/in/jane-doe#about", "https://www.linkedin.com/in/jane-doe"},
		{"https://in.linkedin.com/in/jane-doe", "https://www.linkedin.com/in/jane-doe"},
		{"https://www.linkedin.com/company/dell", ""},
		{"https://www.linkedin.com/in/", ""},
		{"https://example.com/in/jane-doe", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanProfileURL(tt.in), tt.in)
	}
}
