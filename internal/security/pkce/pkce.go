// Package pkce implementa los parámetros del flujo Authorization Code + PKCE
// (RFC 7636): state anti-CSRF, code verifier y code challenge S256.
//
// Tanto state como verifier salen de crypto/rand. El state sólo necesita ser
// impredecible para correlación CSRF, pero usar la misma fuente fuerte para
// ambos no cuesta nada.
package pkce

import (
	tokens "github.com/dropDatabas3/ssogate/internal/security/token"
)

const (
	// 16 bytes => 128 bits de entropía mínima para el state.
	stateBytes = 16
	// 32 bytes => verifier de 43 chars en base64url (mínimo RFC 7636).
	verifierBytes = 32
)

// Flow agrupa los parámetros transitorios de un intento de login.
// Se crea al iniciar el login, se consume una sola vez en el callback
// y se destruye después, sin importar el resultado.
type Flow struct {
	State         string
	CodeVerifier  string
	CodeChallenge string
	ReturnTo      string
}

// GenerateState genera el token opaco para correlación CSRF.
func GenerateState() (string, error) {
	return tokens.GenerateOpaqueToken(stateBytes)
}

// GenerateCodeVerifier genera el secreto PKCE (base64url, sin padding).
func GenerateCodeVerifier() (string, error) {
	return tokens.GenerateOpaqueToken(verifierBytes)
}

// GenerateCodeChallenge deriva el challenge S256 del verifier.
// Determinística y sin efectos: challenge = base64url(sha256(verifier)).
func GenerateCodeChallenge(verifier string) string {
	return tokens.SHA256Base64URL(verifier)
}

// NewFlow crea un Flow completo para un intento de login.
func NewFlow(returnTo string) (*Flow, error) {
	state, err := GenerateState()
	if err != nil {
		return nil, err
	}
	verifier, err := GenerateCodeVerifier()
	if err != nil {
		return nil, err
	}
	return &Flow{
		State:         state,
		CodeVerifier:  verifier,
		CodeChallenge: GenerateCodeChallenge(verifier),
		ReturnTo:      returnTo,
	}, nil
}
