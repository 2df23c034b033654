package main

import (
	"chat-relay/repositories"

	"github.com/mama165/sdk-go/database"
)

// DocumentMapper renders relay records in the Badger debug inspector.
func DocumentMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	row.Type, row.Detail = repositories.Describe(key, val)
	return row
}
