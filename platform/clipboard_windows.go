//go:build windows

package platform

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32                  = windows.NewLazySystemDLL("user32.dll")
	kernel32                = windows.NewLazySystemDLL("kernel32.dll")
	openClipboard           = user32.NewProc("OpenClipboard")
	closeClipboard          = user32.NewProc("CloseClipboard")
	emptyClipboard          = user32.NewProc("EmptyClipboard")
	getClipboardData        = user32.NewProc("GetClipboardData")
	setClipboardData        = user32.NewProc("SetClipboardData")
	enumClipboardFormats    = user32.NewProc("EnumClipboardFormats")
	getClipboardFormatName  = user32.NewProc("GetClipboardFormatNameW")
	registerClipboardFormat = user32.NewProc("RegisterClipboardFormatW")
	globalAlloc             = kernel32.NewProc("GlobalAlloc")
	globalLock              = kernel32.NewProc("GlobalLock")
	globalUnlock            = kernel32.NewProc("GlobalUnlock")
	globalSize              = kernel32.NewProc("GlobalSize")
)

const (
	cfTIFF        = 6
	cfUnicodeText = 13
	gmemMoveable  = 0x0002

	// prefix for formats that have no portable name
	windowsFormatPrefix = "com.microsoft.clipboard."
)

// handle-based formats are GDI objects, not global memory
var gdiFormats = map[uintptr]bool{
	2:    true, // CF_BITMAP
	3:    true, // CF_METAFILEPICT
	9:    true, // CF_PALETTE
	14:   true, // CF_ENHMETAFILE
	0x80: true, // CF_OWNERDISPLAY
	0x82: true, // CF_DSPBITMAP
	0x83: true, // CF_DSPMETAFILEPICT
	0x8E: true, // CF_DSPENHMETAFILE
}

// WindowsClipboard implements the Clipboard interface for Windows.
// The Windows clipboard holds a single item with many formats.
type WindowsClipboard struct {
	mu sync.Mutex
}

// NewClipboard creates a new Windows clipboard instance
func NewClipboard() Clipboard {
	return &WindowsClipboard{}
}

// Data retrieves the payload for a content type
func (c *WindowsClipboard) Data(t ContentType) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	format, err := formatID(t)
	if err != nil {
		return nil, err
	}

	if err := c.open(); err != nil {
		return nil, err
	}
	defer c.close()

	return readGlobal(format)
}

// Items reads every memory-backed format on the clipboard
func (c *WindowsClipboard) Items() ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.open(); err != nil {
		return nil, err
	}
	defer c.close()

	var item Item
	var format uintptr
	for {
		format, _, _ = enumClipboardFormats.Call(format)
		if format == 0 {
			break
		}
		if gdiFormats[format] {
			continue
		}
		data, err := readGlobal(format)
		if err != nil || data == nil {
			continue
		}
		item = append(item, Representation{Type: formatName(format), Data: data})
	}

	if len(item) == 0 {
		return nil, nil
	}
	return []Item{item}, nil
}

// Write replaces the clipboard with the representations of items.
// Formats from later items overwrite earlier ones of the same type.
func (c *WindowsClipboard) Write(items []Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.open(); err != nil {
		return err
	}
	defer c.close()

	emptyClipboard.Call()

	for _, item := range items {
		for _, rep := range item {
			format, err := formatID(rep.Type)
			if err != nil {
				return err
			}
			if err := writeGlobal(format, rep.Data); err != nil {
				return fmt.Errorf("failed to write %s: %w", rep.Type, err)
			}
		}
	}
	return nil
}

// SetText sets text to the clipboard
func (c *WindowsClipboard) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.open(); err != nil {
		return err
	}
	defer c.close()

	emptyClipboard.Call()

	utf16, err := windows.UTF16FromString(text)
	if err != nil {
		return fmt.Errorf("UTF16 conversion failed: %w", err)
	}

	data := unsafe.Slice((*byte)(unsafe.Pointer(&utf16[0])), len(utf16)*2)
	return writeGlobal(cfUnicodeText, data)
}

func readGlobal(format uintptr) ([]byte, error) {
	h, _, err := getClipboardData.Call(format)
	if h == 0 {
		if err != nil && err != syscall.Errno(0) {
			return nil, fmt.Errorf("GetClipboardData failed: %w", err)
		}
		return nil, nil
	}

	size, _, _ := globalSize.Call(h)
	if size == 0 {
		return nil, nil
	}

	l, _, err := globalLock.Call(h)
	if l == 0 {
		return nil, fmt.Errorf("GlobalLock failed: %w", err)
	}
	defer globalUnlock.Call(h)

	src := unsafe.Slice((*byte)(unsafe.Pointer(l)), int(size))
	out := make([]byte, len(src))
	copy(out, src)
	return out, nil
}

func writeGlobal(format uintptr, data []byte) error {
	n := len(data)
	if n == 0 {
		n = 1
	}
	h, _, err := globalAlloc.Call(gmemMoveable, uintptr(n))
	if h == 0 {
		return fmt.Errorf("GlobalAlloc failed: %w", err)
	}

	l, _, err := globalLock.Call(h)
	if l == 0 {
		return fmt.Errorf("GlobalLock failed: %w", err)
	}
	dest := unsafe.Slice((*byte)(unsafe.Pointer(l)), n)
	copy(dest, data)
	globalUnlock.Call(h)

	r, _, err := setClipboardData.Call(format, h)
	if r == 0 {
		return fmt.Errorf("SetClipboardData failed: %w", err)
	}
	return nil
}

// formatName maps a clipboard format id to a portable content type
func formatName(format uintptr) ContentType {
	switch format {
	case cfUnicodeText:
		return TypeText
	case cfTIFF:
		return TypeTIFF
	}

	buf := make([]uint16, 256)
	n, _, _ := getClipboardFormatName.Call(format, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ContentType(windowsFormatPrefix + strconv.FormatUint(uint64(format), 10))
	}

	name := windows.UTF16ToString(buf[:n])
	if name == "PNG" {
		return TypePNG
	}
	return ContentType(windowsFormatPrefix + name)
}

// formatID is the inverse of formatName
func formatID(t ContentType) (uintptr, error) {
	switch t {
	case TypeText:
		return cfUnicodeText, nil
	case TypeTIFF:
		return cfTIFF, nil
	case TypePNG:
		return registerFormat("PNG")
	}

	name, ok := strings.CutPrefix(string(t), windowsFormatPrefix)
	if !ok {
		return registerFormat(string(t))
	}
	if id, err := strconv.ParseUint(name, 10, 32); err == nil {
		return uintptr(id), nil
	}
	return registerFormat(name)
}

func registerFormat(name string) (uintptr, error) {
	p, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	id, _, err := registerClipboardFormat.Call(uintptr(unsafe.Pointer(p)))
	if id == 0 {
		return 0, fmt.Errorf("RegisterClipboardFormat %q failed: %w", name, err)
	}
	return id, nil
}

func (c *WindowsClipboard) open() error {
	// Try to open clipboard with retries
	for i := 0; i < 10; i++ {
		r, _, _ := openClipboard.Call(0)
		if r != 0 {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	return fmt.Errorf("failed to open clipboard after retries")
}

func (c *WindowsClipboard) close() {
	closeClipboard.Call()
}
