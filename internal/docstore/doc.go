// Package docstore persists transcription documents as records in a
// document database.
//
// Two backends exist. The cosmos backend inserts into an Azure Cosmos DB
// container partitioned by record id. The sqlite backend keeps a single
// documents table holding the JSON body, which is enough to list and show
// records locally and is what the tests use.
package docstore
