package binder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func rangedClient(ranges ...clientRange) *Client {
	return &Client{ranges: ranges}
}

func TestFindRangeSingleRange(t *testing.T) {
	c := rangedClient(clientRange{iface: "x", lastCode: 10})
	rg := c.findRange(5)
	if assert.NotNil(t, rg) {
		assert.Equal(t, "x", rg.iface)
	}
	assert.Nil(t, c.findRange(11))
}

func TestFindRangeMultipleRangesPicksFirstCovering(t *testing.T) {
	c := rangedClient(
		clientRange{iface: "a", lastCode: 5},
		clientRange{iface: "b", lastCode: 10},
	)
	rg := c.findRange(3)
	assert.Equal(t, "a", rg.iface)

	rg = c.findRange(8)
	assert.Equal(t, "b", rg.iface)

	assert.Nil(t, c.findRange(11))
}

func TestFindRangeBoundaryIsInclusive(t *testing.T) {
	c := rangedClient(clientRange{iface: "x", lastCode: 5})
	rg := c.findRange(5)
	if assert.NotNil(t, rg) {
		assert.Equal(t, "x", rg.iface)
	}
}

func TestNewRequestNoMatchingRange(t *testing.T) {
	c := rangedClient(clientRange{iface: "x", lastCode: 5})
	_, err := c.NewRequest(6)
	assert.Error(t, err)
	assert.True(t, IsCode(err, ErrCodeInvalid))
}

func TestInterfaceRangeSortOrder(t *testing.T) {
	ranges := []InterfaceRange{
		{Iface: "b", LastCode: 20},
		{Iface: "a", LastCode: 10},
	}
	sorted := append([]InterfaceRange(nil), ranges...)
	// mirrors the sort NewClient performs internally
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].LastCode < sorted[j-1].LastCode; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	assert.Equal(t, "a", sorted[0].Iface)
	assert.Equal(t, "b", sorted[1].Iface)
}
