package redis_client

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestNew_NoAddress(t *testing.T) {
	viper.Set("redis.address", "")
	defer viper.Reset()

	assert.Nil(t, New(context.Background()))
}

func TestNew_Unreachable(t *testing.T) {
	// Nothing listens on port 1.
	viper.Set("redis.address", "127.0.0.1:1")
	defer viper.Reset()

	assert.Nil(t, New(context.Background()))
}
