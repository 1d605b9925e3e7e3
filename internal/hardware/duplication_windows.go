//go:build windows

package hardware

/*
#cgo LDFLAGS: -ld3d11 -ldxgi -luuid
#include <windows.h>
#include <d3d11.h>
#include <dxgi1_2.h>
#include <string.h>

typedef struct {
    ID3D11Device*           device;
    ID3D11DeviceContext*    context;
    IDXGIOutputDuplication* dup;
    ID3D11Texture2D*        staging;
    UINT                    width;
    UINT                    height;
} Duplicator;

// dup_open creates a D3D11 device on the adapter owning outputIndex and
// duplicates that output. Returns NULL on any failure.
Duplicator* dup_open(int outputIndex) {
    IDXGIFactory1* factory = NULL;
    if (CreateDXGIFactory1(&IID_IDXGIFactory1, (void**)&factory) != S_OK)
        return NULL;

    IDXGIAdapter1* adapter = NULL;
    IDXGIOutput* output = NULL;
    int current = 0;
    int found = 0;

    for (UINT a = 0; !found && factory->lpVtbl->EnumAdapters1(factory, a, &adapter) != DXGI_ERROR_NOT_FOUND; a++) {
        for (UINT o = 0; adapter->lpVtbl->EnumOutputs(adapter, o, &output) != DXGI_ERROR_NOT_FOUND; o++) {
            if (current == outputIndex) { found = 1; break; }
            output->lpVtbl->Release(output);
            output = NULL;
            current++;
        }
        if (!found) { adapter->lpVtbl->Release(adapter); adapter = NULL; }
    }
    factory->lpVtbl->Release(factory);

    if (!found || adapter == NULL || output == NULL) return NULL;

    ID3D11Device* device = NULL;
    ID3D11DeviceContext* context = NULL;
    D3D_FEATURE_LEVEL level;
    HRESULT hr = D3D11CreateDevice(
        (IDXGIAdapter*)adapter, D3D_DRIVER_TYPE_UNKNOWN, NULL, 0,
        NULL, 0, D3D11_SDK_VERSION, &device, &level, &context);
    adapter->lpVtbl->Release(adapter);
    if (hr != S_OK) { output->lpVtbl->Release(output); return NULL; }

    IDXGIOutput1* output1 = NULL;
    hr = output->lpVtbl->QueryInterface(output, &IID_IDXGIOutput1, (void**)&output1);
    output->lpVtbl->Release(output);
    if (hr != S_OK) {
        context->lpVtbl->Release(context);
        device->lpVtbl->Release(device);
        return NULL;
    }

    DXGI_OUTPUT_DESC desc;
    output1->lpVtbl->GetDesc(output1, &desc);

    IDXGIOutputDuplication* dup = NULL;
    hr = output1->lpVtbl->DuplicateOutput(output1, (IUnknown*)device, &dup);
    output1->lpVtbl->Release(output1);
    if (hr != S_OK) {
        context->lpVtbl->Release(context);
        device->lpVtbl->Release(device);
        return NULL;
    }

    UINT width = desc.DesktopCoordinates.right - desc.DesktopCoordinates.left;
    UINT height = desc.DesktopCoordinates.bottom - desc.DesktopCoordinates.top;

    D3D11_TEXTURE2D_DESC stagingDesc;
    memset(&stagingDesc, 0, sizeof(stagingDesc));
    stagingDesc.Width = width;
    stagingDesc.Height = height;
    stagingDesc.MipLevels = 1;
    stagingDesc.ArraySize = 1;
    stagingDesc.Format = DXGI_FORMAT_B8G8R8A8_UNORM;
    stagingDesc.SampleDesc.Count = 1;
    stagingDesc.Usage = D3D11_USAGE_STAGING;
    stagingDesc.CPUAccessFlags = D3D11_CPU_ACCESS_READ;

    ID3D11Texture2D* staging = NULL;
    hr = device->lpVtbl->CreateTexture2D(device, &stagingDesc, NULL, &staging);
    if (hr != S_OK) {
        dup->lpVtbl->Release(dup);
        context->lpVtbl->Release(context);
        device->lpVtbl->Release(device);
        return NULL;
    }

    Duplicator* d = (Duplicator*)malloc(sizeof(Duplicator));
    d->device = device;
    d->context = context;
    d->dup = dup;
    d->staging = staging;
    d->width = width;
    d->height = height;
    return d;
}

// dup_acquire tries to acquire the next frame with zero timeout and, on
// success, copies it BGRA into dst (which must be width*height*4 bytes).
// Returns 1 on a fresh frame, 0 on "no new frame" (expected, common), -1
// on a real error (device lost, etc).
int dup_acquire(Duplicator* d, unsigned char* dst, int dstLen) {
    IDXGIResource* resource = NULL;
    DXGI_OUTDUPL_FRAME_INFO info;
    HRESULT hr = d->dup->lpVtbl->AcquireNextFrame(d->dup, 0, &info, &resource);

    if (hr == DXGI_ERROR_WAIT_TIMEOUT) return 0;
    if (hr != S_OK) return -1;

    ID3D11Texture2D* tex = NULL;
    hr = resource->lpVtbl->QueryInterface(resource, &IID_ID3D11Texture2D, (void**)&tex);
    resource->lpVtbl->Release(resource);
    if (hr != S_OK) {
        d->dup->lpVtbl->ReleaseFrame(d->dup);
        return -1;
    }

    d->context->lpVtbl->CopyResource(d->context, (ID3D11Resource*)d->staging, (ID3D11Resource*)tex);
    tex->lpVtbl->Release(tex);

    D3D11_MAPPED_SUBRESOURCE mapped;
    hr = d->context->lpVtbl->Map(d->context, (ID3D11Resource*)d->staging, 0, D3D11_MAP_READ, 0, &mapped);
    if (hr != S_OK) {
        d->dup->lpVtbl->ReleaseFrame(d->dup);
        return -1;
    }

    unsigned char* src = (unsigned char*)mapped.pData;
    int rowBytes = d->width * 4;
    int avail = (int)(rowBytes) * (int)d->height;
    int n = avail < dstLen ? avail : dstLen;
    if ((int)mapped.RowPitch == rowBytes) {
        memcpy(dst, src, n);
    } else {
        int copied = 0;
        for (UINT row = 0; row < d->height && copied < n; row++) {
            int chunk = rowBytes < (n - copied) ? rowBytes : (n - copied);
            memcpy(dst + copied, src + row * mapped.RowPitch, chunk);
            copied += chunk;
        }
    }

    d->context->lpVtbl->Unmap(d->context, (ID3D11Resource*)d->staging, 0);
    d->dup->lpVtbl->ReleaseFrame(d->dup);
    return 1;
}

int dup_width(Duplicator* d)  { return (int)d->width; }
int dup_height(Duplicator* d) { return (int)d->height; }

void dup_close(Duplicator* d) {
    if (!d) return;
    if (d->staging) d->staging->lpVtbl->Release(d->staging);
    if (d->dup) d->dup->lpVtbl->Release(d->dup);
    if (d->context) d->context->lpVtbl->Release(d->context);
    if (d->device) d->device->lpVtbl->Release(d->device);
    free(d);
}
*/
import "C"

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

// Duplicator wraps one IDXGIOutputDuplication session for a single
// monitor ordinal. AcquireNextFrame itself is lock-free; handleMu guards
// only the pointer swap that recovery performs, matching the spec's "a
// short lock guards only the read/write of the duplication handle".
type Duplicator struct {
	handleMu sync.Mutex
	handle   *C.Duplicator
	monitor  int
}

// OpenDuplicator opens desktop duplication for monitorIndex.
func OpenDuplicator(monitorIndex int) (*Duplicator, error) {
	h := C.dup_open(C.int(monitorIndex))
	if h == nil {
		return nil, fmt.Errorf("failed to duplicate output %d", monitorIndex)
	}
	return &Duplicator{handle: h, monitor: monitorIndex}, nil
}

// Size returns the duplicated output's resolution.
func (d *Duplicator) Size() (width, height int) {
	d.handleMu.Lock()
	h := d.handle
	d.handleMu.Unlock()
	if h == nil {
		return 0, 0
	}
	return int(C.dup_width(h)), int(C.dup_height(h))
}

// AcquireFrame tries to acquire the next frame with zero timeout, copying
// BGRA bytes into dst on success. ok=false with err=nil means "no new
// frame available" — an expected, common outcome, not a failure.
func (d *Duplicator) AcquireFrame(dst []byte) (ok bool, err error) {
	d.handleMu.Lock()
	h := d.handle
	d.handleMu.Unlock()

	if h == nil {
		return false, fmt.Errorf("duplicator closed")
	}

	ret := C.dup_acquire(h, (*C.uchar)(unsafe.Pointer(&dst[0])), C.int(len(dst)))
	switch ret {
	case 1:
		return true, nil
	case 0:
		return false, nil
	default:
		return false, fmt.Errorf("duplication acquire failed (device lost or access denied)")
	}
}

// Recover releases the current duplication handle, waits briefly, and
// reacquires it from the same monitor ordinal. The device itself is not
// rebuilt, matching the spec's recovery contract.
func (d *Duplicator) Recover() error {
	d.handleMu.Lock()
	old := d.handle
	d.handle = nil
	d.handleMu.Unlock()

	if old != nil {
		C.dup_close(old)
	}
	time.Sleep(100 * time.Millisecond)

	h := C.dup_open(C.int(d.monitor))
	if h == nil {
		return fmt.Errorf("failed to reacquire duplication for monitor %d", d.monitor)
	}

	d.handleMu.Lock()
	d.handle = h
	d.handleMu.Unlock()
	return nil
}

// Close releases the duplication session.
func (d *Duplicator) Close() {
	d.handleMu.Lock()
	h := d.handle
	d.handle = nil
	d.handleMu.Unlock()
	if h != nil {
		C.dup_close(h)
	}
}
