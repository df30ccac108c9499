/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"testing"
	"time"

	"github.com/ssgreg/logf"
	"github.com/stretchr/testify/require"

	"github.com/ppguide/site/log"
)

func TestLoggingParams_AddTimeSlot(t *testing.T) {
	lp := LoggingParams{}
	lp.AddTimeSlotInt("slot1", 100)
	lp.AddTimeSlotDurationInMs("slot2", 2*time.Second)
	lp.AddTimeSlotDurationInMs("slot2", 500*time.Millisecond)

	require.Equal(t, log.Field{
		Key:  "time_slots",
		Type: logf.FieldTypeObject,
		Any:  loggableIntMap{"slot1": 100, "slot2": 2500},
	}, lp.timeSlotsField())
}

func TestLoggingParams_ExtendFields(t *testing.T) {
	lp := LoggingParams{}
	lp.ExtendFields(log.String("stage", "enroll"))
	lp.ExtendFields(log.Int("attempt", 1))
	require.Len(t, lp.fields, 2)
	require.Equal(t, "stage", lp.fields[0].Key)
}
