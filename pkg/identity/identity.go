package identity

import (
	"errors"
	"fmt"
	"os"

	"github.com/benmeehan/gps-uplink-agent/pkg/file"
	"github.com/google/uuid"
)

// Identity holds the device's unique identifier.
type Identity struct {
	ID string `json:"device_id,omitempty"`
}

// DeviceInfoInterface defines methods for managing device identity.
type DeviceInfoInterface interface {
	LoadDeviceInfo() error
	SaveDeviceID(deviceID string) error
	GetDeviceID() string
	EnsureDeviceID(configured string) (string, error)
}

// DeviceInfo manages the device identity and its associated file operations.
type DeviceInfo struct {
	DeviceInfoFile string
	Identity       Identity
	fileOps        file.FileOperations
	newID          func() string
}

// NewDeviceInfo initializes a new DeviceInfo instance.
func NewDeviceInfo(filePath string, fileOps file.FileOperations) *DeviceInfo {
	return &DeviceInfo{
		DeviceInfoFile: filePath,
		fileOps:        fileOps,
		newID:          uuid.NewString,
	}
}

// LoadDeviceInfo reads the device information from the file. A missing file
// leaves the identity empty.
func (d *DeviceInfo) LoadDeviceInfo() error {
	err := d.fileOps.ReadJsonFile(d.DeviceInfoFile, &d.Identity)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			d.Identity = Identity{}
			return nil
		}
		return err
	}

	return nil
}

// GetDeviceID returns the current device ID.
func (d *DeviceInfo) GetDeviceID() string {
	return d.Identity.ID
}

// SaveDeviceID updates the device ID and writes it back to the file.
func (d *DeviceInfo) SaveDeviceID(deviceID string) error {
	d.Identity.ID = deviceID
	return d.fileOps.WriteJsonFile(d.DeviceInfoFile, d.Identity)
}

// EnsureDeviceID returns configured when set. Otherwise it returns the id
// stored in the identity file, generating and persisting one on first boot.
func (d *DeviceInfo) EnsureDeviceID(configured string) (string, error) {
	if configured != "" {
		d.Identity.ID = configured
		return configured, nil
	}

	if err := d.LoadDeviceInfo(); err != nil {
		return "", fmt.Errorf("load identity %s: %w", d.DeviceInfoFile, err)
	}
	if id := d.GetDeviceID(); id != "" {
		return id, nil
	}

	id := d.newID()
	if err := d.SaveDeviceID(id); err != nil {
		return "", fmt.Errorf("save identity %s: %w", d.DeviceInfoFile, err)
	}
	return id, nil
}
