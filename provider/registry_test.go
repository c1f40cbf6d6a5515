package provider_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chittyos/chittyrouter/entity"
	"github.com/chittyos/chittyrouter/errors"
	"github.com/chittyos/chittyrouter/provider"
	providertest "github.com/chittyos/chittyrouter/provider/test"
)

func TestRegistry_Register(t *testing.T) {
	registry, err := provider.NewRegistry(
		providertest.NewStubProvider("a", entity.ComplexitySimple),
		providertest.NewStubProvider("b", entity.ComplexityComplex),
	)
	require.NoError(t, err)

	p, err := registry.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "a", p.ID())

	_, err = registry.Get("missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	err = registry.Register(providertest.NewStubProvider("a", entity.ComplexitySimple))
	assert.Error(t, err, "duplicate registration must be rejected")
}

func TestRegistry_CapableOf(t *testing.T) {
	registry, err := provider.NewRegistry(
		providertest.NewStubProvider("simple-only", entity.ComplexitySimple),
		providertest.NewStubProvider("mid", entity.ComplexityModerate),
		providertest.NewStubProvider("big", entity.ComplexityComplex),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"simple-only", "mid", "big"}, registry.CapableOf(entity.ComplexitySimple))
	assert.Equal(t, []string{"mid", "big"}, registry.CapableOf(entity.ComplexityModerate))
	assert.Equal(t, []string{"big"}, registry.CapableOf(entity.ComplexityComplex))
}

func TestRegistry_OrderIsRegistrationOrder(t *testing.T) {
	registry, err := provider.NewRegistry(
		providertest.NewStubProvider("z", entity.ComplexitySimple),
		providertest.NewStubProvider("a", entity.ComplexitySimple),
		providertest.NewStubProvider("m", entity.ComplexitySimple),
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "a", "m"}, registry.IDs())
}
