// Package indexer embeds the Solr index lifecycle coordinator in a Go program.
//
// The client talks to Solr directly and publishes generated config sets to
// ZooKeeper (or a Redis/Valkey key space) without running the HTTP service:
//
//	client, err := indexer.New(ctx,
//	    indexer.WithSolr("http://localhost:8983/solr/"),
//	    indexer.WithZooKeeper("localhost:9983"),
//	)
//	err = client.CreateIndex(ctx, "books", []indexer.Field{
//	    {Name: "id", Type: "string", Indexed: true, Stored: true},
//	    {Name: "title", Type: "text_general", Indexed: true, Stored: true},
//	})
//	_, err = client.Upload(ctx, "books", csv, indexer.ContentCSV, nil)
//	err = client.DeleteIndex(ctx, "books", indexer.DropConfig())
package indexer
