package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomer_DecodeBackendDocument(t *testing.T) {
	payload := `{"_id":"65f0","name":"Ada","email":"ada@example.com","phone":"+1",
		"totalSpend":1250.5,"lastOrderDate":"2024-04-01T00:00:00.000Z","visitCount":7,"createdAt":"2023-01-01T00:00:00.000Z","__v":0}`

	var c Customer
	require.NoError(t, json.Unmarshal([]byte(payload), &c))
	assert.Equal(t, "65f0", c.ID)
	assert.Equal(t, 1250.5, c.TotalSpend)
	assert.Equal(t, 7, c.VisitCount)
	require.NotNil(t, c.LastOrderDate)
	assert.Equal(t, "2024-04-01T00:00:00.000Z", *c.LastOrderDate)
	assert.True(t, c.Reachable())
	assert.False(t, Customer{Name: "no mail"}.Reachable())
}

func TestRulesText(t *testing.T) {
	rules := []Rule{
		{Field: "totalSpend", Operator: ">", Value: 1000.0},
		{Field: "visitCount", Operator: "<", Value: 3.0, LogicGate: "AND"},
		{Field: "lastOrderDate", Operator: "older_than_days", Value: "90"},
	}
	assert.Equal(t, "totalSpend > 1000, visitCount < 3, lastOrderDate older_than_days 90", RulesText(rules))
	assert.Empty(t, RulesText(nil))
}
