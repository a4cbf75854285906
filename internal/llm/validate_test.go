package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGapSchemaRoundTrip(t *testing.T) {
	schema := BuildGapJSONSchema()

	normalized, _, err := NormalizeGapJSON([]byte(`{"title":"Contract overrun","description":"d","item":"HVAC maintenance","participants":"A, B","amount_increase":500}`))
	require.NoError(t, err)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, normalized))

	// defaults pass too: the pipeline never persists an incomplete gap record
	normalized, _, err = NormalizeGapJSON([]byte(`{}`))
	require.NoError(t, err)
	assert.NoError(t, ValidateJSONAgainstSchema(schema, normalized))
}

func TestGapSchemaRejectsBadAmount(t *testing.T) {
	schema := BuildGapJSONSchema()
	err := ValidateJSONAgainstSchema(schema, []byte(`{"title":"t","description":"d","item":"i","participants":"p","amount_increase":"-5.00"}`))
	assert.Error(t, err, "negative amounts must not validate")

	err = ValidateJSONAgainstSchema(schema, []byte(`{"title":"t","description":"d","item":"i","participants":"p"}`))
	assert.Error(t, err, "missing amount must not validate")
}

func TestAlarmSchemaAllowsNullDate(t *testing.T) {
	schema := BuildAlarmJSONSchema()
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"date_time":null,"summary":"nothing concerning"}`)))
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"date_time":"2024-01-15","summary":"s"}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"date_time":"2024-01-15"}`)), "summary is required")
}

func TestReferencesSchema(t *testing.T) {
	schema := BuildReferencesJSONSchema()
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"references":[]}`)))
	assert.NoError(t, ValidateJSONAgainstSchema(schema, []byte(`{"references":[{"attachment_name":"invoice.pdf","message_date":null}]}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{"references":[{"attachment_name":"no extension here"}]}`)))
	assert.Error(t, ValidateJSONAgainstSchema(schema, []byte(`{}`)))
}
