package corpus

import "context"

// Provider supplies documents to be indexed. How they are obtained (files,
// databases, remote image APIs with fallbacks) is the provider's business.
// query is the search being served in ephemeral mode and empty when a
// persistent index is (re)loaded; providers are free to ignore it.
type Provider interface {
	Documents(ctx context.Context, query string) ([]Document, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, query string) ([]Document, error)

func (f ProviderFunc) Documents(ctx context.Context, query string) ([]Document, error) {
	return f(ctx, query)
}

// StaticProvider always returns the same documents.
type StaticProvider []Document

func (p StaticProvider) Documents(ctx context.Context, query string) ([]Document, error) {
	out := make([]Document, len(p))
	copy(out, p)
	return out, nil
}

// FileProvider re-reads a corpus file on every call.
type FileProvider struct {
	Path string
}

func (p FileProvider) Documents(ctx context.Context, query string) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Load(p.Path)
}
