package cache

import (
	"fmt"

	"euphonica-core/internal/model"

	"go.mongodb.org/mongo-driver/bson"
)

// encodeAlbumMeta and decodeAlbumMeta move AlbumMeta documents in and
// out of the BSON blob stored in the albums.data column (spec.md §4.2:
// "data is a BSON-encoded document of the provider-agnostic AlbumMeta/
// ArtistMeta shape"), grounded on the Rust original's bson::to_vec/
// bson::from_document round trip (src/cache/sqlite.rs).
func encodeAlbumMeta(meta model.AlbumMeta) ([]byte, error) {
	data, err := bson.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("cache: encode album meta: %w", err)
	}
	return data, nil
}

func decodeAlbumMeta(data []byte) (model.AlbumMeta, error) {
	var meta model.AlbumMeta
	if err := bson.Unmarshal(data, &meta); err != nil {
		return model.AlbumMeta{}, fmt.Errorf("cache: decode album meta: %w", err)
	}
	return meta, nil
}

func encodeArtistMeta(meta model.ArtistMeta) ([]byte, error) {
	data, err := bson.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("cache: encode artist meta: %w", err)
	}
	return data, nil
}

func decodeArtistMeta(data []byte) (model.ArtistMeta, error) {
	var meta model.ArtistMeta
	if err := bson.Unmarshal(data, &meta); err != nil {
		return model.ArtistMeta{}, fmt.Errorf("cache: decode artist meta: %w", err)
	}
	return meta, nil
}
