package oidc

import (
	"context"
	"errors"
	"fmt"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/magabrotheeeer/jam-admin/internal/config"
)

// ErrNonceMismatch nonce в id_token не совпадает с выпущенным.
var ErrNonceMismatch = errors.New("id_token nonce mismatch")

// OIDCProvider провайдер на go-oidc и oauth2.
type OIDCProvider struct {
	provider *gooidc.Provider
	verifier *gooidc.IDTokenVerifier
	oauth    *oauth2.Config
}

// NewOIDCProvider загружает discovery-документ провайдера.
func NewOIDCProvider(ctx context.Context, cfg config.OIDC) (*OIDCProvider, error) {
	const op = "oidc.NewOIDCProvider"

	p, err := gooidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, &ProviderError{Stage: "discovery", Err: err})
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{gooidc.ScopeOpenID, "email", "profile"}
	}
	return &OIDCProvider{
		provider: p,
		verifier: p.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     p.Endpoint(),
			Scopes:       scopes,
		},
	}, nil
}

// AuthCodeURL адрес страницы входа провайдера.
func (p *OIDCProvider) AuthCodeURL(state, nonce string) string {
	return p.oauth.AuthCodeURL(state, gooidc.Nonce(nonce))
}

// Exchange выполняет один обмен кода на токены без повторов.
func (p *OIDCProvider) Exchange(ctx context.Context, code, nonce string) (*ClaimSources, error) {
	if code == "" {
		return nil, &ProviderError{Stage: StageExchange, Err: errors.New("authorization code is missing")}
	}

	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &ProviderError{Stage: StageExchange, Err: err}
	}

	rawID, ok := tok.Extra("id_token").(string)
	if !ok || rawID == "" {
		return nil, &ProviderError{Stage: StageClaims, Err: errors.New("token response has no id_token")}
	}
	idt, err := p.verifier.Verify(ctx, rawID)
	if err != nil {
		return nil, &ProviderError{Stage: StageClaims, Err: err}
	}
	if idt.Nonce != nonce {
		return nil, &ProviderError{Stage: StageClaims, Err: ErrNonceMismatch}
	}

	sources := &ClaimSources{}
	if err := idt.Claims(&sources.IDToken); err != nil {
		return nil, &ProviderError{Stage: StageClaims, Err: err}
	}

	if p.provider.UserInfoEndpoint() != "" {
		ui, err := p.provider.UserInfo(ctx, oauth2.StaticTokenSource(tok))
		if err != nil {
			return nil, &ProviderError{Stage: "userinfo", Err: err}
		}
		if err := ui.Claims(&sources.UserInfo); err != nil {
			return nil, &ProviderError{Stage: "userinfo", Err: err}
		}
	}
	return sources, nil
}
