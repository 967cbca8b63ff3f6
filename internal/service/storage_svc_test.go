package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewStorageProvider_Local(t *testing.T) {
	provider, err := NewStorageProvider(&StorageConfig{
		Provider: "local",
		LocalDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("NewStorageProvider() error = %v", err)
	}
	if _, ok := provider.(*LocalStorage); !ok {
		t.Errorf("provider = %T, want *LocalStorage", provider)
	}
}

func TestNewStorageProvider_Invalid(t *testing.T) {
	if _, err := NewStorageProvider(&StorageConfig{Provider: "invalid"}); err == nil {
		t.Error("期望返回错误，但未返回")
	}
}

func TestLocalStorage_UploadAndDelete(t *testing.T) {
	dir := t.TempDir()
	provider, err := NewLocalStorage(&StorageConfig{LocalDir: dir, PublicURL: "/uploads/", BasePath: "products"})
	if err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	ctx := context.Background()
	url, err := provider.Upload(ctx, []byte("jpeg-bytes"), "Camisa.JPG", "image/jpeg")
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(url, "/uploads/products/") || !strings.HasSuffix(url, ".jpg") {
		t.Errorf("url = %s", url)
	}

	path := filepath.Join(dir, filepath.FromSlash(strings.TrimPrefix(url, "/uploads/")))
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "jpeg-bytes" {
		t.Fatalf("文件内容不正确: %q, %v", data, err)
	}

	if err := provider.Delete(ctx, url); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("文件应已删除")
	}

	// 重复删除不报错
	if err := provider.Delete(ctx, url); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestLocalStorage_DeleteRejectsForeignURL(t *testing.T) {
	provider, _ := NewLocalStorage(&StorageConfig{LocalDir: t.TempDir()})

	if err := provider.Delete(context.Background(), "https://cdn.example.com/a.jpg"); err == nil {
		t.Error("外部 URL 应返回错误")
	}
	if err := provider.Delete(context.Background(), "/uploads/../etc/passwd"); err == nil {
		t.Error("路径穿越应返回错误")
	}
}

func TestS3Storage_KeyRoundTrip(t *testing.T) {
	s := &S3Storage{bucket: "shop", region: "us-east-1", cdnDomain: "cdn.shop.test"}

	url := s.publicURL("p/2026/01/01/x.jpg")
	if url != "https://cdn.shop.test/p/2026/01/01/x.jpg" {
		t.Errorf("publicURL = %s", url)
	}
	if key := s.extractKey(url); key != "p/2026/01/01/x.jpg" {
		t.Errorf("extractKey = %s", key)
	}

	s.cdnDomain = ""
	url = s.publicURL("k.jpg")
	if url != "https://shop.s3.us-east-1.amazonaws.com/k.jpg" || s.extractKey(url) != "k.jpg" {
		t.Errorf("publicURL/extractKey mismatch: %s", url)
	}
}
