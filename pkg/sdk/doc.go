// Package simdex is an in-process Go client for the simdex similarity search
// engine: it talks to Valkey/Redis (or an in-memory store) and the descriptor
// extraction services directly, without the HTTP API.
//
// Two item kinds are supported:
//   - KindImage: frame, color and texture descriptor groups
//   - KindMesh: Fourier and Zernike shape descriptors
//
// # Usage
//
//	client, _ := simdex.New(ctx,
//	    simdex.WithStore(simdex.DriverValkey, "localhost:6379"),
//	    simdex.WithImageExtractor("http://localhost:5000"),
//	    simdex.WithMeshExtractor("http://localhost:5001"),
//	)
//	defer client.Close()
//
//	_, _ = client.Items(simdex.KindImage).Ingest(ctx, files, "animals", nil)
//	res, _ := client.Search(simdex.KindImage).Query(ctx, query, simdex.SearchOptions{TopN: 5})
//
//	// Relevance feedback on a previous answer adapts the stored weights.
//	res, _ = client.Search(simdex.KindImage).Query(ctx, query, simdex.SearchOptions{
//	    Feedback: &simdex.Feedback{Relevant: []string{"cat.jpg"}, Irrelevant: []string{"car.jpg"}},
//	})
package simdex
