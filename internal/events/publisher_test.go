package events

import (
	"context"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChannel records publishes. closeOnPublish makes the next publish fail
// as a broker-side close would.
type fakeChannel struct {
	closed         bool
	closeOnPublish bool
	publishErr     error
	published      []string
	closeCalls     int
}

func (c *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, _ amqp.Publishing) error {
	if c.closed {
		return amqp.ErrClosed
	}
	if c.closeOnPublish {
		c.closed = true
		return amqp.ErrClosed
	}
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, key)
	return nil
}

func (c *fakeChannel) IsClosed() bool { return c.closed }

func (c *fakeChannel) Close() error {
	c.closeCalls++
	c.closed = true
	return nil
}

var _ channel = (*fakeChannel)(nil)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// dialer hands out the given channels in order and counts dials.
type dialer struct {
	channels []*fakeChannel
	err      error
	dials    int
}

func (d *dialer) dial(string, string) (session, error) {
	d.dials++
	if d.err != nil {
		return session{}, d.err
	}
	ch := d.channels[0]
	d.channels = d.channels[1:]
	return session{conn: nopCloser{}, ch: ch}, nil
}

func TestPublisher_RedialsAfterBrokerClose(t *testing.T) {
	first, second := &fakeChannel{}, &fakeChannel{}
	d := &dialer{channels: []*fakeChannel{first, second}}
	p, err := newPublisher("amqp://broker", "order.exchange", d.dial)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "order.placed", struct{}{}))

	first.closed = true
	assert.False(t, p.Connected())

	require.NoError(t, p.Publish(context.Background(), "order.accepted", struct{}{}))

	assert.Equal(t, 2, d.dials)
	assert.Equal(t, []string{"order.placed"}, first.published)
	assert.Equal(t, []string{"order.accepted"}, second.published)
	assert.True(t, p.Connected())
}

func TestPublisher_RetriesOnceWhenChannelClosesMidPublish(t *testing.T) {
	first, second := &fakeChannel{closeOnPublish: true}, &fakeChannel{}
	d := &dialer{channels: []*fakeChannel{first, second}}
	p, err := newPublisher("amqp://broker", "order.exchange", d.dial)
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), "order.cancelled", struct{}{}))

	assert.Equal(t, []string{"order.cancelled"}, second.published)
	assert.Equal(t, 1, first.closeCalls)
}

func TestPublisher_DoesNotRedialOnOpenChannelError(t *testing.T) {
	boom := errors.New("context deadline exceeded")
	ch := &fakeChannel{publishErr: boom}
	d := &dialer{channels: []*fakeChannel{ch}}
	p, err := newPublisher("amqp://broker", "order.exchange", d.dial)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "order.placed", struct{}{})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, d.dials)
}

func TestPublisher_ReconnectFailureIsReturned(t *testing.T) {
	ch := &fakeChannel{}
	d := &dialer{channels: []*fakeChannel{ch}}
	p, err := newPublisher("amqp://broker", "order.exchange", d.dial)
	require.NoError(t, err)

	ch.closed = true
	down := errors.New("connection refused")
	d.err = down

	err = p.Publish(context.Background(), "order.placed", struct{}{})
	assert.ErrorIs(t, err, down)

	// The broker comes back; the next publish recovers.
	d.err = nil
	next := &fakeChannel{}
	d.channels = []*fakeChannel{next}
	require.NoError(t, p.Publish(context.Background(), "order.placed", struct{}{}))
	assert.Equal(t, []string{"order.placed"}, next.published)
}
