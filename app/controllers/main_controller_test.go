package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandleIndex(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "GuildPay is running!", body)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
}

func TestCheckoutPages(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.get(t, "/checkout/success")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Thank you for subscribing")

	resp, body = ts.get(t, "/checkout/cancel")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "canceled")
}
