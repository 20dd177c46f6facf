// PixelTrack - Web Analytics Tracking Backend
// Copyright 2026 BuilderBee
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/builderbee/pixeltrack

// Package imagehost stores user profile pictures on Cloudinary.
package imagehost

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	"github.com/builderbee/pixeltrack/internal/config"
)

// Store uploads and removes hosted profile pictures.
type Store interface {
	UploadProfilePicture(ctx context.Context, userID string, file io.Reader) (string, error)
	DeleteProfilePicture(ctx context.Context, pictureURL string) error
}

// CloudinaryStore implements Store on the Cloudinary upload API.
type CloudinaryStore struct {
	client *cloudinary.Cloudinary
	folder string
}

// NewCloudinaryStore creates a store from the image host configuration.
func NewCloudinaryStore(cfg *config.ImageHostConfig) (*CloudinaryStore, error) {
	client, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudinary client: %w", err)
	}
	folder := cfg.Folder
	if folder == "" {
		folder = "profile_pictures_website"
	}
	return &CloudinaryStore{client: client, folder: folder}, nil
}

// UploadProfilePicture uploads the image under a stable per-user public ID
// so a re-upload replaces the previous picture, and returns the HTTPS URL.
func (s *CloudinaryStore) UploadProfilePicture(ctx context.Context, userID string, file io.Reader) (string, error) {
	overwrite := true
	resp, err := s.client.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:    s.folder,
		PublicID:  userID,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload profile picture: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("failed to upload profile picture: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}

// DeleteProfilePicture removes a hosted picture by its delivery URL.
// Foreign URLs (Google avatars and the like) are ignored.
func (s *CloudinaryStore) DeleteProfilePicture(ctx context.Context, pictureURL string) error {
	publicID := s.publicIDFromURL(pictureURL)
	if publicID == "" {
		return nil
	}
	_, err := s.client.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete profile picture: %w", err)
	}
	return nil
}

// publicIDFromURL extracts "<folder>/<id>" from a Cloudinary delivery URL
// like https://res.cloudinary.com/<cloud>/image/upload/v123/<folder>/<id>.png.
// Returns "" for URLs outside our folder.
func (s *CloudinaryStore) publicIDFromURL(pictureURL string) string {
	marker := "/" + s.folder + "/"
	idx := strings.Index(pictureURL, marker)
	if idx < 0 {
		return ""
	}
	name := pictureURL[idx+len(marker):]
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" {
		return ""
	}
	return s.folder + "/" + name
}
