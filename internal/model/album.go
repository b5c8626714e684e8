// Package model はドメインモデルを定義する。
package model

// Album はユーザーのフォトアルバムを表す。
type Album struct {
	ID     int    `json:"id"`
	UserID int    `json:"userId"`
	Title  string `json:"title"`
}

// Photo はアルバム内の写真を表す。
type Photo struct {
	ID           int    `json:"id"`
	AlbumID      int    `json:"albumId"`
	Title        string `json:"title"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnailUrl"`
}

// AlbumWithPhotos はアルバムと所属写真を結合した非正規化ビュー。
// Photosは挿入順を保持する。
type AlbumWithPhotos struct {
	Album
	Photos []Photo `json:"photos"`
}
