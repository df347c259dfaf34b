package secret

import (
	"context"
	"testing"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	value string
	err   error
	calls int
}

func (f *fakeStore) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(f.value)}, nil
}

func TestProviderStaticKeyBypassesStore(t *testing.T) {
	store := &fakeStore{}
	provider := NewProvider(store, "", "sk-static", time.Minute)

	got, err := provider.Reference(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-static", got)
	require.Zero(t, store.calls)
}

func TestProviderNoCredentialConfigured(t *testing.T) {
	provider := NewProvider(&fakeStore{}, "", "", time.Minute)
	_, err := provider.Reference(context.Background())
	require.Error(t, err)
}

func TestProviderCachesReference(t *testing.T) {
	store := &fakeStore{value: "sk-remote"}
	provider := NewProvider(store, "arn:aws:secretsmanager:us-east-1:123:secret:key", "", time.Minute)

	for i := 0; i < 5; i++ {
		got, err := provider.Reference(context.Background())
		require.NoError(t, err)
		require.Equal(t, "sk-remote", got)
	}
	require.Equal(t, 1, store.calls)
}

func TestProviderRefreshesAfterTTL(t *testing.T) {
	store := &fakeStore{value: "sk-remote"}
	provider := NewProvider(store, "arn:aws:secretsmanager:us-east-1:123:secret:key", "", 10*time.Millisecond)

	_, err := provider.Reference(context.Background())
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)

	store.value = "sk-rotated"
	got, err := provider.Reference(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sk-rotated", got)
	require.Equal(t, 2, store.calls)
}

func TestProviderSurfacesStoreFailure(t *testing.T) {
	store := &fakeStore{err: errors.New("access denied")}
	provider := NewProvider(store, "arn:aws:secretsmanager:us-east-1:123:secret:key", "", time.Minute)

	_, err := provider.Reference(context.Background())
	require.Error(t, err)
}

func TestExtractKeyShapes(t *testing.T) {
	out := &secretsmanager.GetSecretValueOutput{SecretString: aws.String("sk-bare")}
	got, err := extractKey(out)
	require.NoError(t, err)
	require.Equal(t, "sk-bare", got)

	out = &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"api_key":"sk-json"}`)}
	got, err = extractKey(out)
	require.NoError(t, err)
	require.Equal(t, "sk-json", got)

	out = &secretsmanager.GetSecretValueOutput{SecretString: aws.String(`{"other":"x"}`)}
	_, err = extractKey(out)
	require.Error(t, err)

	out = &secretsmanager.GetSecretValueOutput{}
	_, err = extractKey(out)
	require.Error(t, err)
}
