package panels

import (
	"fmt"
	"io"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"titanroof/internal/annotation"
	roofimage "titanroof/internal/image"
	"titanroof/ui/prefs"
)

// PhotoExtensions are the file types accepted for photos.
var PhotoExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// ReadURI reads an opened file into memory.
func ReadURI(r fyne.URIReadCloser) (roofimage.File, error) {
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return roofimage.File{}, fmt.Errorf("read %s: %w", r.URI().Name(), err)
	}
	return roofimage.File{Name: r.URI().Name(), MIMEType: r.URI().MimeType(), Data: data}, nil
}

// PhotoFromFile embeds an image file as a data URL photo so it is saved
// with the project.
func PhotoFromFile(f roofimage.File) (*annotation.Photo, error) {
	if !f.IsImage() {
		return nil, fmt.Errorf("%s: %w", f.Name, roofimage.ErrUnsupported)
	}
	return annotation.NewDataPhoto(f.Name, f.DetectMIME(), f.Data), nil
}

// LastDir returns the remembered dialog directory as a listable URI.
func LastDir(p *prefs.Prefs) fyne.ListableURI {
	if p == nil {
		return nil
	}
	dir := p.String(prefs.KeyLastDirectory)
	if dir == "" {
		return nil
	}
	lister, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return lister
}

// SaveLastDir remembers the directory containing uri.
func SaveLastDir(p *prefs.Prefs, uri fyne.URI) {
	if p == nil || uri == nil || uri.Path() == "" {
		return
	}
	p.SetString(prefs.KeyLastDirectory, filepath.Dir(uri.Path()))
	_ = p.Save()
}

// ShowOpen shows a file picker limited to exts and delivers the file read
// into memory.
func ShowOpen(win fyne.Window, p *prefs.Prefs, exts []string, done func(f roofimage.File)) {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		if reader == nil {
			return
		}
		SaveLastDir(p, reader.URI())
		f, err := ReadURI(reader)
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		done(f)
	}, win)
	d.SetFilter(storage.NewExtensionFileFilter(exts))
	if loc := LastDir(p); loc != nil {
		d.SetLocation(loc)
	}
	d.Show()
}

// pickPhoto asks for an image and converts it into a photo.
func pickPhoto(win fyne.Window, p *prefs.Prefs, done func(photo *annotation.Photo)) {
	if win == nil {
		return
	}
	ShowOpen(win, p, PhotoExtensions, func(f roofimage.File) {
		photo, err := PhotoFromFile(f)
		if err != nil {
			dialog.ShowError(err, win)
			return
		}
		done(photo)
	})
}
