//go:build darwin

package platform

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework Cocoa

#import <Cocoa/Cocoa.h>
#include <stdlib.h>
#include <string.h>

static NSMutableArray<NSPasteboardItem *> *pipPending;

static long pip_change_count(void) {
    return (long)[[NSPasteboard generalPasteboard] changeCount];
}

static int pip_item_count(void) {
    @autoreleasepool {
        return (int)[[[NSPasteboard generalPasteboard] pasteboardItems] count];
    }
}

static int pip_type_count(int item) {
    @autoreleasepool {
        NSArray<NSPasteboardItem *> *items = [[NSPasteboard generalPasteboard] pasteboardItems];
        if (item < 0 || item >= (int)items.count) {
            return 0;
        }
        return (int)[[items[item] types] count];
    }
}

static char *pip_type_name(int item, int index) {
    @autoreleasepool {
        NSArray<NSPasteboardItem *> *items = [[NSPasteboard generalPasteboard] pasteboardItems];
        if (item < 0 || item >= (int)items.count) {
            return NULL;
        }
        NSArray<NSPasteboardType> *types = [items[item] types];
        if (index < 0 || index >= (int)types.count) {
            return NULL;
        }
        return strdup([types[index] UTF8String]);
    }
}

static void *pip_copy_data(NSData *data, int *length) {
    *length = 0;
    if (data == nil || data.length == 0) {
        return NULL;
    }
    void *buf = malloc(data.length);
    if (buf == NULL) {
        return NULL;
    }
    memcpy(buf, data.bytes, data.length);
    *length = (int)data.length;
    return buf;
}

static void *pip_item_data(int item, int index, int *length) {
    *length = 0;
    @autoreleasepool {
        NSArray<NSPasteboardItem *> *items = [[NSPasteboard generalPasteboard] pasteboardItems];
        if (item < 0 || item >= (int)items.count) {
            return NULL;
        }
        NSArray<NSPasteboardType> *types = [items[item] types];
        if (index < 0 || index >= (int)types.count) {
            return NULL;
        }
        return pip_copy_data([items[item] dataForType:types[index]], length);
    }
}

static void *pip_data_for_type(const char *type, int *length) {
    @autoreleasepool {
        NSString *t = [NSString stringWithUTF8String:type];
        return pip_copy_data([[NSPasteboard generalPasteboard] dataForType:t], length);
    }
}

static void pip_begin_write(void) {
    pipPending = [NSMutableArray array];
}

static void pip_add_item(void) {
    [pipPending addObject:[[NSPasteboardItem alloc] init]];
}

static void pip_set_data(const char *type, const void *data, int length) {
    NSPasteboardItem *item = [pipPending lastObject];
    if (item == nil) {
        return;
    }
    NSData *payload = length > 0 ? [NSData dataWithBytes:data length:length] : [NSData data];
    [item setData:payload forType:[NSString stringWithUTF8String:type]];
}

static int pip_commit_write(void) {
    @autoreleasepool {
        NSPasteboard *pb = [NSPasteboard generalPasteboard];
        [pb clearContents];
        BOOL ok = YES;
        if (pipPending.count > 0) {
            ok = [pb writeObjects:pipPending];
        }
        pipPending = nil;
        return ok ? 1 : 0;
    }
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"

	"golang.design/x/clipboard"
)

// pasteboard reads are retried when another app writes mid-read
const maxReadAttempts = 3

// DarwinClipboard implements the Clipboard interface for macOS
type DarwinClipboard struct {
	mu       sync.Mutex
	initOnce sync.Once
	initErr  error
}

// NewClipboard creates a new macOS clipboard instance
func NewClipboard() Clipboard {
	return &DarwinClipboard{}
}

func (c *DarwinClipboard) init() error {
	c.initOnce.Do(func() {
		if err := clipboard.Init(); err != nil {
			c.initErr = fmt.Errorf("failed to init clipboard: %w", err)
		}
	})
	return c.initErr
}

// Data returns the bytes for the given content type
func (c *DarwinClipboard) Data(t ContentType) ([]byte, error) {
	if err := c.init(); err != nil {
		return nil, err
	}

	if t == TypePNG {
		return clipboard.Read(clipboard.FmtImage), nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ctype := C.CString(string(t))
	defer C.free(unsafe.Pointer(ctype))

	var n C.int
	buf := C.pip_data_for_type(ctype, &n)
	if buf == nil {
		return nil, nil
	}
	defer C.free(buf)
	return C.GoBytes(buf, n), nil
}

// Items copies every representation of every pasteboard item
func (c *DarwinClipboard) Items() ([]Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for attempt := 0; attempt < maxReadAttempts; attempt++ {
		before := C.pip_change_count()
		items := c.readItems()
		if C.pip_change_count() == before {
			return items, nil
		}
	}
	return nil, fmt.Errorf("pasteboard kept changing during read")
}

func (c *DarwinClipboard) readItems() []Item {
	count := int(C.pip_item_count())
	items := make([]Item, 0, count)
	for i := 0; i < count; i++ {
		types := int(C.pip_type_count(C.int(i)))
		item := make(Item, 0, types)
		for j := 0; j < types; j++ {
			name := C.pip_type_name(C.int(i), C.int(j))
			if name == nil {
				continue
			}
			rep := Representation{Type: ContentType(C.GoString(name))}
			C.free(unsafe.Pointer(name))

			var n C.int
			buf := C.pip_item_data(C.int(i), C.int(j), &n)
			if buf != nil {
				rep.Data = C.GoBytes(buf, n)
				C.free(buf)
			} else {
				rep.Data = []byte{}
			}
			item = append(item, rep)
		}
		items = append(items, item)
	}
	return items
}

// Write replaces the pasteboard contents with items
func (c *DarwinClipboard) Write(items []Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	C.pip_begin_write()
	for _, item := range items {
		C.pip_add_item()
		for _, rep := range item {
			ctype := C.CString(string(rep.Type))
			var ptr unsafe.Pointer
			if len(rep.Data) > 0 {
				ptr = C.CBytes(rep.Data)
			}
			C.pip_set_data(ctype, ptr, C.int(len(rep.Data)))
			C.free(unsafe.Pointer(ctype))
			if ptr != nil {
				C.free(ptr)
			}
		}
	}

	if C.pip_commit_write() == 0 {
		return fmt.Errorf("failed to write %d pasteboard items", len(items))
	}
	return nil
}

// SetText replaces the pasteboard contents with a single plain-text item
func (c *DarwinClipboard) SetText(text string) error {
	if err := c.init(); err != nil {
		return err
	}
	if changed := clipboard.Write(clipboard.FmtText, []byte(text)); changed == nil {
		return fmt.Errorf("failed to write text to clipboard")
	}
	return nil
}
