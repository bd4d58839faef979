package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanValidate(t *testing.T) {
	ok := &Plan{Name: "Gold", UnitAmount: 1999, RoleID: "role-gold"}
	assert.NoError(t, ok.Validate())

	assert.Error(t, (&Plan{Name: "", UnitAmount: 1999, RoleID: "role-gold"}).Validate())
	assert.Error(t, (&Plan{Name: "Gold", UnitAmount: 0, RoleID: "role-gold"}).Validate())
	assert.Error(t, (&Plan{Name: "Gold", UnitAmount: 1999}).Validate())
}
