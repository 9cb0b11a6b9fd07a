//go:build windows

package platform

import (
	"fmt"
	"time"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"
)

const serviceStateTimeout = 30 * time.Second

// WindowsServices controls services through the service control
// manager.
type WindowsServices struct{}

func (WindowsServices) Stop(name string) error {
	return withService(name, stopService)
}

func (WindowsServices) Start(name string) error {
	return withService(name, startService)
}

func (WindowsServices) Restart(name string) error {
	return withService(name, func(s *mgr.Service) error {
		if err := stopService(s); err != nil {
			return err
		}
		return startService(s)
	})
}

func withService(name string, fn func(*mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("connecting to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(name)
	if err != nil {
		return fmt.Errorf("opening service %s: %w", name, err)
	}
	defer s.Close()

	return fn(s)
}

func startService(s *mgr.Service) error {
	status, err := s.Query()
	if err != nil {
		return err
	}
	if status.State == svc.Running {
		return nil
	}
	if err := s.Start(); err != nil {
		return err
	}
	return waitForState(s, svc.Running)
}

func stopService(s *mgr.Service) error {
	status, err := s.Query()
	if err != nil {
		return err
	}
	if status.State == svc.Stopped {
		return nil
	}
	if _, err := s.Control(svc.Stop); err != nil {
		return err
	}
	return waitForState(s, svc.Stopped)
}

func waitForState(s *mgr.Service, want svc.State) error {
	deadline := time.Now().Add(serviceStateTimeout)
	for {
		status, err := s.Query()
		if err != nil {
			return err
		}
		if status.State == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("service %s did not reach state %d in time", s.Name, want)
		}
		time.Sleep(300 * time.Millisecond)
	}
}
