/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package log_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/log"
	"github.com/ppguide/site/log/logtest"
)

func TestSecretMasker_Mask(t *testing.T) {
	masker := log.NewSecretMasker([]string{"kit_live_abc123", "", "form-42"})

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "no secrets", in: "POST /v4/subscribers", want: "POST /v4/subscribers"},
		{name: "single secret", in: "X-Kit-Api-Key: kit_live_abc123", want: "X-Kit-Api-Key: ***"},
		{name: "repeated secret", in: "kit_live_abc123/kit_live_abc123", want: "***/***"},
		{name: "two secrets", in: "key=kit_live_abc123 form=form-42", want: "key=*** form=***"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, masker.Mask(tt.in))
		})
	}
}

func TestMaskingLogger(t *testing.T) {
	recorder := logtest.NewRecorder()
	logger := log.NewMaskingLogger(recorder, log.NewSecretMasker([]string{"s3cr3t"}))

	logger.With(log.String("api_key", "s3cr3t")).Error(
		"request with s3cr3t failed",
		log.Error(errors.New("dial https://api?key=s3cr3t: refused")),
		log.Bytes("body", []byte(`{"token":"s3cr3t"}`)),
		log.Int("status", 500),
	)
	logger.Infof("formatted %s", "s3cr3t")

	entry, found := recorder.FindEntry("request with *** failed")
	require.True(t, found)
	require.Equal(t, "***", entry.FieldString("api_key"))
	errField, found := entry.FindField("error")
	require.True(t, found)
	require.EqualError(t, errField.Any.(error), "dial https://api?key=***: refused")
	require.Equal(t, `{"token":"***"}`, entry.FieldString("body"))
	statusField, found := entry.FindField("status")
	require.True(t, found)
	require.EqualValues(t, 500, statusField.Int)

	_, found = recorder.FindEntry("formatted ***")
	require.True(t, found)
}
