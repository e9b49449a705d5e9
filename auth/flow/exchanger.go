package flow

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/kbukum/authflow/auth/oidc"
	"github.com/kbukum/authflow/errors"
)

// Exchanger trades an authorization code for the provider's ID token.
type Exchanger interface {
	Exchange(ctx context.Context, provider oidc.ProviderConfig, code string) (idToken string, err error)
}

// ExchangerFunc adapts a function to Exchanger.
type ExchangerFunc func(ctx context.Context, provider oidc.ProviderConfig, code string) (string, error)

// Exchange implements Exchanger.
func (f ExchangerFunc) Exchange(ctx context.Context, provider oidc.ProviderConfig, code string) (string, error) {
	return f(ctx, provider, code)
}

var defaultExchangeClient = &http.Client{Timeout: 10 * time.Second}

// OAuth2Exchanger posts to the provider token endpoint with x/oauth2,
// sending the client credentials in the form body.
type OAuth2Exchanger struct {
	// Client performs the request. Its timeout bounds the exchange.
	// Defaults to a client with a 10s timeout.
	Client *http.Client
}

// Exchange implements Exchanger. Any failure, including a response without
// an id_token, is TOKEN_EXCHANGE_FAILED.
func (e OAuth2Exchanger) Exchange(ctx context.Context, provider oidc.ProviderConfig, code string) (string, error) {
	client := e.Client
	if client == nil {
		client = defaultExchangeClient
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
	token, err := oauth2Config(provider).Exchange(ctx, code)
	if err != nil {
		appErr := errors.TokenExchangeFailed(provider.Name, err)
		var re *oauth2.RetrieveError
		if stderrors.As(err, &re) && re.Response != nil {
			appErr = appErr.WithDetail("status", re.Response.StatusCode)
		}
		return "", appErr
	}
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return "", errors.TokenExchangeFailed(provider.Name, fmt.Errorf("token response has no id_token"))
	}
	return idToken, nil
}

func oauth2Config(p oidc.ProviderConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret.Reveal(),
		RedirectURL:  p.RedirectURI,
		Scopes:       p.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthorizationEndpoint,
			TokenURL:  p.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}
