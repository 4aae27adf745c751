package github

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/crypto/nacl/box"

	"github.com/Strob0t/ForgeShift/internal/forgehttp"
	"github.com/Strob0t/ForgeShift/internal/port/dest"
)

// PutFile creates or updates one file through the contents API. The
// API refuses to overwrite an existing file unless its current blob
// SHA is attached, so existence is probed first.
func (p *Provider) PutFile(ctx context.Context, owner, repo, path string, params dest.CommitFileParams) error {
	apiPath := repoPath(owner, repo, "/contents/"+escapePath(path))

	query := url.Values{}
	if params.Branch != "" {
		query.Set("ref", params.Branch)
	}
	var existing struct {
		SHA string `json:"sha"`
	}
	if err := p.client.GetJSON(ctx, apiPath, query, &existing); err != nil && !notFound(err) {
		return fmt.Errorf("github probe file %s: %w", path, err)
	}

	body := map[string]string{
		"message": params.Message,
		"content": base64.StdEncoding.EncodeToString(params.Content),
	}
	if params.Branch != "" {
		body["branch"] = params.Branch
	}
	if existing.SHA != "" {
		body["sha"] = existing.SHA
	}
	if _, err := p.client.Do(ctx, http.MethodPut, apiPath, nil, body); err != nil {
		return fmt.Errorf("github put file %s: %w", path, err)
	}
	return nil
}

// publicKey fetches the repository's Actions public key, caching it
// per repository.
func (p *Provider) publicKey(ctx context.Context, owner, repo string) (repoKey, error) {
	cacheKey := owner + "/" + repo
	p.mu.Lock()
	k, ok := p.keys[cacheKey]
	p.mu.Unlock()
	if ok {
		return k, nil
	}
	if err := p.client.GetJSON(ctx, repoPath(owner, repo, "/actions/secrets/public-key"), nil, &k); err != nil {
		return repoKey{}, err
	}
	p.mu.Lock()
	p.keys[cacheKey] = k
	p.mu.Unlock()
	return k, nil
}

// PutActionsSecret seals value against the repository public key and
// stores it under name. The plaintext never reaches a log line or an
// error message.
func (p *Provider) PutActionsSecret(ctx context.Context, owner, repo, name, value string) error {
	k, err := p.publicKey(ctx, owner, repo)
	if err != nil {
		return fmt.Errorf("github actions public key: %w", err)
	}
	sealed, err := sealSecret(k.Key, value)
	if err != nil {
		return fmt.Errorf("github seal secret %q: %w", name, err)
	}
	body := map[string]string{"encrypted_value": sealed, "key_id": k.KeyID}
	path := repoPath(owner, repo, "/actions/secrets/"+url.PathEscape(name))
	if _, err := p.client.Do(ctx, http.MethodPut, path, nil, body); err != nil {
		return fmt.Errorf("github put secret %q: %w", name, err)
	}
	return nil
}

// sealSecret encrypts value with the base64-encoded NaCl public key
// in the sealed-box form the Actions API expects.
func sealSecret(publicKey, value string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(publicKey)
	if err != nil {
		return "", fmt.Errorf("decode public key: %w", err)
	}
	if len(raw) != 32 {
		return "", fmt.Errorf("public key is %d bytes, want 32", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	sealed, err := box.SealAnonymous(nil, []byte(value), &key, rand.Reader)
	if err != nil {
		return "", fmt.Errorf("seal: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// PutActionsVariable creates the variable, updating it in place when
// it already exists.
func (p *Provider) PutActionsVariable(ctx context.Context, owner, repo, name, value string) error {
	body := map[string]string{"name": name, "value": value}
	_, err := p.client.Do(ctx, http.MethodPost, repoPath(owner, repo, "/actions/variables"), nil, body)
	if err == nil {
		return nil
	}
	if fe, ok := forgehttp.AsError(err); !ok || fe.Status != http.StatusConflict {
		return fmt.Errorf("github put variable %q: %w", name, err)
	}
	path := repoPath(owner, repo, "/actions/variables/"+url.PathEscape(name))
	if _, err := p.client.Do(ctx, http.MethodPatch, path, nil, body); err != nil {
		return fmt.Errorf("github update variable %q: %w", name, err)
	}
	return nil
}

// PutEnvironment creates the deployment environment if it does not
// exist. Protection rules are not configured here.
func (p *Provider) PutEnvironment(ctx context.Context, owner, repo, name string) error {
	path := repoPath(owner, repo, "/environments/"+url.PathEscape(name))
	if _, err := p.client.Do(ctx, http.MethodPut, path, nil, struct{}{}); err != nil {
		return fmt.Errorf("github put environment %q: %w", name, err)
	}
	return nil
}
