package playback

import (
	"fmt"
	"strings"

	"github.com/osa030/falapai/internal/domain/speech"
)

// Messages holds the user-facing text shown for each failure kind.
// Service may contain a single %d verb for the HTTP status.
type Messages struct {
	Authentication string
	Service        string
	Transport      string
	Playback       string
}

// DefaultMessages returns the built-in Brazilian Portuguese messages.
func DefaultMessages() Messages {
	return Messages{
		Authentication: "Erro de autenticação (401): A chave da API do ElevenLabs pode estar ausente ou inválida. Por favor, verifique a configuração do seu ambiente.",
		Service:        "Erro ao gerar a fala: %d. Por favor, tente novamente.",
		Transport:      "Não foi possível conectar ao serviço de fala. Verifique sua conexão com a internet.",
		Playback:       "Erro ao reproduzir o áudio. Tente novamente.",
	}
}

// withDefaults fills empty entries from DefaultMessages.
func (m Messages) withDefaults() Messages {
	d := DefaultMessages()
	if m.Authentication == "" {
		m.Authentication = d.Authentication
	}
	if m.Service == "" {
		m.Service = d.Service
	}
	if m.Transport == "" {
		m.Transport = d.Transport
	}
	if m.Playback == "" {
		m.Playback = d.Playback
	}
	return m
}

// For returns the message for a failure kind.
func (m Messages) For(kind speech.FailureKind, statusCode int) string {
	switch kind {
	case speech.FailureAuthentication:
		return m.Authentication
	case speech.FailureService:
		if strings.Contains(m.Service, "%d") {
			return fmt.Sprintf(m.Service, statusCode)
		}
		return m.Service
	case speech.FailurePlayback:
		return m.Playback
	default:
		return m.Transport
	}
}
