package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/gpolens/internal/config"
	"github.com/bryanwahyu/gpolens/internal/infra/ai/throttle"
)

func TestNewOracle(t *testing.T) {
	o, err := NewOracle(context.Background(), config.AI{Provider: "openai", APIKey: "sk-test", CallTimeout: time.Minute})
	require.NoError(t, err)
	assert.IsType(t, &throttle.Oracle{}, o)

	_, err = NewOracle(context.Background(), config.AI{Provider: "openai"})
	assert.Error(t, err)

	_, err = NewOracle(context.Background(), config.AI{Provider: "gemini"})
	assert.Error(t, err)

	_, err = NewOracle(context.Background(), config.AI{Provider: "llama", APIKey: "x"})
	assert.Error(t, err)
}
