/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suparena/syncstore/diff"
)

type player struct {
	ID   int64  `dynamodbav:"id" json:"id"`
	Name string `dynamodbav:"name" json:"name"`
}

func (p *player) EntityID() int64      { return p.ID }
func (p *player) SetEntityID(id int64) { p.ID = id }

func newTestStrategy() *Strategy[*player] {
	return NewWithClient[*player](nil, "test-table", "Player")
}

func TestExpandMacros(t *testing.T) {
	indexMap := map[string]string{
		"PK": "Player",
		"SK": "Player#{id}",
	}
	av := map[string]types.AttributeValue{
		"id":   &types.AttributeValueMemberN{Value: "42"},
		"name": &types.AttributeValueMemberS{Value: "Ma Long"},
	}

	expanded := expandMacros(indexMap, av)

	assert.Equal(t, "Player", expanded["PK"])
	assert.Equal(t, "Player#42", expanded["SK"])
}

func TestExpandMacrosMissingAttribute(t *testing.T) {
	indexMap := map[string]string{"SK": "X#{missing}"}

	expanded := expandMacros(indexMap, map[string]types.AttributeValue{})

	assert.Equal(t, "X#", expanded["SK"])
}

func TestMarshalItemIncludesKeys(t *testing.T) {
	s := newTestStrategy()

	av, err := s.marshalItem(&player{ID: 7, Name: "Fan"})
	require.NoError(t, err)

	pk, ok := av["PK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "Player", pk.Value)

	sk, ok := av["SK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "Player#7", sk.Value)

	// Entity attributes survive alongside the keys.
	name, ok := av["name"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "Fan", name.Value)
}

func TestItemKey(t *testing.T) {
	s := newTestStrategy()

	key, err := s.itemKey(&player{ID: 3})
	require.NoError(t, err)
	require.Len(t, key, 2)

	sk := key["SK"].(*types.AttributeValueMemberS)
	assert.Equal(t, "Player#3", sk.Value)
}

func TestItemKeyRequiresIndexMap(t *testing.T) {
	s := NewWithClient[*player](nil, "test-table", "Player",
		WithIndexMap[*player](map[string]string{"PK": "{missing}"}))

	_, err := s.itemKey(&player{ID: 3})
	require.Error(t, err)
}

func TestBuildTransactItems(t *testing.T) {
	s := newTestStrategy()

	d := diff.Diff[*player]{
		ToInsert: []*player{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}},
		ToDelete: []*player{{ID: 9}},
	}

	twi, err := s.buildTransactItems(d)
	require.NoError(t, err)
	require.Len(t, twi, 3)

	assert.NotNil(t, twi[0].Put)
	assert.NotNil(t, twi[1].Put)
	require.NotNil(t, twi[2].Delete)

	sk := twi[2].Delete.Key["SK"].(*types.AttributeValueMemberS)
	assert.Equal(t, "Player#9", sk.Value)
}

func TestChunkTransactItems(t *testing.T) {
	items := make([]types.TransactWriteItem, 250)

	chunks := chunkTransactItems(items, 100)

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 100)
	assert.Len(t, chunks[1], 100)
	assert.Len(t, chunks[2], 50)

	assert.Nil(t, chunkTransactItems(nil, 100))
}

func TestNewItemAllocatesPointer(t *testing.T) {
	p := newItem[*player]()
	require.NotNil(t, p)
	p.SetEntityID(5)
	assert.Equal(t, int64(5), p.EntityID())
}

func TestDefaultIndexMap(t *testing.T) {
	s := newTestStrategy()
	assert.Equal(t, "Player", s.indexMap["PK"])
	assert.Equal(t, "Player#{id}", s.indexMap["SK"])
}
