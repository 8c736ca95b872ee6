package services

import (
	"bytes"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// IWebAuthnProvider wraps the webauthn library behind body-level calls: the
// ceremony responses arrive as the credential sub-object of a JSON request,
// not as a whole *http.Request.
type IWebAuthnProvider interface {
	BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error)
	FinishRegistration(user webauthn.User, session webauthn.SessionData, credential []byte) (*webauthn.Credential, error)
	BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error)
	FinishLogin(user webauthn.User, session webauthn.SessionData, credential []byte) (*webauthn.Credential, error)
}

type WebAuthnProvider struct {
	wa *webauthn.WebAuthn
}

func NewWebAuthnProvider(wa *webauthn.WebAuthn) IWebAuthnProvider {
	return &WebAuthnProvider{wa: wa}
}

func (p *WebAuthnProvider) BeginRegistration(user webauthn.User, opts ...webauthn.RegistrationOption) (*protocol.CredentialCreation, *webauthn.SessionData, error) {
	return p.wa.BeginRegistration(user, opts...)
}

func (p *WebAuthnProvider) FinishRegistration(user webauthn.User, session webauthn.SessionData, credential []byte) (*webauthn.Credential, error) {
	parsed, err := protocol.ParseCredentialCreationResponseBody(bytes.NewReader(credential))
	if err != nil {
		return nil, err
	}
	return p.wa.CreateCredential(user, session, parsed)
}

func (p *WebAuthnProvider) BeginLogin(user webauthn.User, opts ...webauthn.LoginOption) (*protocol.CredentialAssertion, *webauthn.SessionData, error) {
	return p.wa.BeginLogin(user, opts...)
}

func (p *WebAuthnProvider) FinishLogin(user webauthn.User, session webauthn.SessionData, credential []byte) (*webauthn.Credential, error) {
	parsed, err := protocol.ParseCredentialRequestResponseBody(bytes.NewReader(credential))
	if err != nil {
		return nil, err
	}
	return p.wa.ValidateLogin(user, session, parsed)
}
