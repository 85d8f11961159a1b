package main

import (
	"context"
	"log"

	"github.com/wailsapp/wails/v2/pkg/runtime"
)

// Dialogs abstracts the native dialogs the app opens, so bindings can be
// exercised in tests without a running GUI.
type Dialogs interface {
	// OpenLasFiles shows a multi-select file dialog filtered to .las files.
	// A cancelled dialog returns an empty slice and nil error.
	OpenLasFiles(ctx context.Context) ([]string, error)
	ShowError(ctx context.Context, title, message string)
	ShowInfo(ctx context.Context, title, message string)
}

// wailsDialogs implements Dialogs with the Wails runtime dialogs.
type wailsDialogs struct{}

func (wailsDialogs) OpenLasFiles(ctx context.Context) ([]string, error) {
	return runtime.OpenMultipleFilesDialog(ctx, runtime.OpenDialogOptions{
		Title: "Open LAS files",
		Filters: []runtime.FileFilter{
			{DisplayName: "LAS point clouds (*.las)", Pattern: "*.las"},
		},
	})
}

func (wailsDialogs) ShowError(ctx context.Context, title, message string) {
	_, err := runtime.MessageDialog(ctx, runtime.MessageDialogOptions{
		Type:    runtime.ErrorDialog,
		Title:   title,
		Message: message,
	})
	if err != nil {
		log.Printf("error dialog failed: %v", err)
	}
}

func (wailsDialogs) ShowInfo(ctx context.Context, title, message string) {
	_, err := runtime.MessageDialog(ctx, runtime.MessageDialogOptions{
		Type:    runtime.InfoDialog,
		Title:   title,
		Message: message,
	})
	if err != nil {
		log.Printf("info dialog failed: %v", err)
	}
}
