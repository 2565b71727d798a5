package cavali

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/jhoicas/operaciones-factoring/pkg/config"
)

// CredentialSource entrega el bearer opaco que exige Cavali.
type CredentialSource interface {
	Token(ctx context.Context) (string, error)
}

// ClientCredentials obtiene el token con el flujo OAuth2 client-credentials.
// El id y el secreto viajan en el cuerpo del formulario, como lo espera el servidor de Cavali.
type ClientCredentials struct {
	cfg        clientcredentials.Config
	httpClient *http.Client
	timeout    time.Duration
}

// NewClientCredentials construye la fuente de credenciales desde la configuración.
func NewClientCredentials(cfg config.CavaliConfig, httpClient *http.Client) *ClientCredentials {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	var scopes []string
	if s := strings.TrimSpace(cfg.Scope); s != "" {
		scopes = strings.Fields(s)
	}
	timeout := cfg.TokenTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ClientCredentials{
		cfg: clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       scopes,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Token solicita un token nuevo en cada llamada; el validador lo pide una vez por operación.
func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("cavali: token: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("cavali: token: respuesta sin access_token")
	}
	return tok.AccessToken, nil
}
