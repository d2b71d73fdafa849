package stream

import (
	"sync/atomic"
	"testing"
	"time"

	"live-stats/src/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// slowClient blocks in Disconnect until release is closed.
type slowClient struct {
	mqtt.Client
	release      chan struct{}
	disconnected atomic.Bool
	unsubscribed atomic.Bool
}

func (c *slowClient) IsConnected() bool { return true }

func (c *slowClient) Unsubscribe(topics ...string) mqtt.Token {
	c.unsubscribed.Store(true)
	return nil
}

func (c *slowClient) Disconnect(quiesce uint) {
	<-c.release
	c.disconnected.Store(true)
}

func TestMQTTStreamCloseDoesNotWaitForDisconnect(t *testing.T) {
	client := &slowClient{release: make(chan struct{})}
	st := &mqttStream{
		client: client,
		topic:  "live/stats/GLOBAL",
		msgs:   make(chan models.MStreamMessage, 1),
		errs:   make(chan error, 1),
		done:   make(chan struct{}),
	}

	closed := make(chan struct{})
	go func() {
		st.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on Disconnect")
	}

	_, err := st.Next()
	assert.Error(t, err)

	close(client.release)
	require.Eventually(t, client.disconnected.Load, time.Second, 5*time.Millisecond)
	assert.True(t, client.unsubscribed.Load())
}
