package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinkEncodesGreeting(t *testing.T) {
	c, err := NewComposer("", "")
	require.NoError(t, err)

	link, err := c.Link(Recipient{Name: "Juan Pérez", Phone: "+54 9 11 1234-5678"})
	require.NoError(t, err)
	assert.Equal(t, "https://wa.me/5491112345678?text=Hola%20Juan%20P%C3%A9rez%21", link)
}

func TestCustomTemplateAndBase(t *testing.T) {
	c, err := NewComposer("https://api.whatsapp.com/send", "Hola {{.Name}} ({{.Code}}), ¿cómo estás?")
	require.NoError(t, err)

	msg, err := c.Greeting(Recipient{Name: "Ana", Code: "C1"})
	require.NoError(t, err)
	assert.Equal(t, "Hola Ana (C1), ¿cómo estás?", msg)

	link, err := c.Link(Recipient{Name: "Ana", Code: "C1", Phone: "123"})
	require.NoError(t, err)
	assert.Contains(t, link, "https://api.whatsapp.com/send/123?text=")
	assert.NotContains(t, link, "+")
}

func TestBadTemplate(t *testing.T) {
	_, err := NewComposer("", "Hola {{.Name")
	require.Error(t, err)
}

func TestOpenerFunc(t *testing.T) {
	var got string
	o := OpenerFunc(func(u string) error { got = u; return errors.New("no browser") })
	require.Error(t, o.Open("https://wa.me/1"))
	assert.Equal(t, "https://wa.me/1", got)
}
