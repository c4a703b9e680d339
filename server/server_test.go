// Copyright 2025 OpenPubkey
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptrace"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/openpubkey/mockgaia/identity"
	"github.com/openpubkey/mockgaia/routes"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func newDispatcher(t *testing.T) *Dispatcher {
	table, err := routes.Default(identity.Default())
	require.NoError(t, err)
	logger, _ := logtest.NewNullLogger()
	d, err := NewDispatcher(table, logger)
	require.NoError(t, err)
	return d
}

// startServer serves on a random loopback port and returns the server and a
// channel carrying Serve's result.
func startServer(t *testing.T, ctx context.Context, opts *Options) (*Server, chan error) {
	logger, _ := logtest.NewNullLogger()
	srv, err := New(newDispatcher(t), logger, opts)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx, ln)
	}()
	return srv, errCh
}

func TestOptionsValidate(t *testing.T) {
	testCases := []struct {
		name     string
		opts     Options
		expError string
	}{
		{name: "defaults", opts: *GetDefaultOptions()},
		{name: "tls", opts: Options{Addr: "127.0.0.1:5000", CertFile: "cert.pem", KeyFile: "key.pem"}},
		{name: "cert without key", opts: Options{Addr: "127.0.0.1:5000", CertFile: "cert.pem"}, expError: ErrIncompleteTLS.Error()},
		{name: "key without cert", opts: Options{Addr: "127.0.0.1:5000", KeyFile: "key.pem"}, expError: ErrIncompleteTLS.Error()},
		{name: "missing port", opts: Options{Addr: "127.0.0.1"}, expError: "invalid listen address"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.opts.Validate()
			if tc.expError != "" {
				require.ErrorContains(t, err, tc.expError)
			} else {
				require.NoError(t, err)
			}
		})
	}

	_, err := New(newDispatcher(t), nil, &Options{Addr: "127.0.0.1:5000", CertFile: "cert.pem"})
	require.ErrorIs(t, err, ErrIncompleteTLS)
}

func TestServeAndShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := GetDefaultOptions()
	srv, errCh := startServer(t, ctx, opts)

	var resp *http.Response
	var err error
	require.Eventually(t, func() bool {
		if srv.Addr() == nil {
			return false
		}
		resp, err = http.Get(srv.URL() + "/GetCheckConnectionInfo")
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "{}", string(body))
	require.Equal(t, "HTTP/1.1", resp.Proto)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestServeKeepAlive(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, _ := startServer(t, ctx, GetDefaultOptions())
	require.Eventually(t, func() bool { return srv.Addr() != nil }, 5*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{}}
	get := func() bool {
		var reused bool
		trace := &httptrace.ClientTrace{
			GotConn: func(info httptrace.GotConnInfo) { reused = info.Reused },
		}
		req, err := http.NewRequest(http.MethodGet, srv.URL()+"/GetUserInfo", nil)
		require.NoError(t, err)
		req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))
		resp, err := client.Do(req)
		require.NoError(t, err)
		_, err = io.Copy(io.Discard, resp.Body)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode)
		return reused
	}

	require.False(t, get())
	require.True(t, get(), "second request should reuse the connection")
}

func TestServeTLS(t *testing.T) {
	certFile, keyFile, pool := writeSelfSignedCert(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, errCh := startServer(t, ctx, &Options{
		Addr:            "127.0.0.1:5000",
		CertFile:        certFile,
		KeyFile:         keyFile,
		ShutdownTimeout: time.Second,
	})
	require.Eventually(t, func() bool { return srv.Addr() != nil }, 5*time.Second, 10*time.Millisecond)
	require.Regexp(t, `^https://127\.0\.0\.1:\d+$`, srv.URL())

	client := &http.Client{Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}}
	resp, err := client.Post(srv.URL()+"/ListAccounts", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, `["gaia.l.a.r", [""]]`, string(body))

	cancel()
	require.NoError(t, <-errCh)
}

func TestServeTLSMissingFiles(t *testing.T) {
	dir := t.TempDir()
	srv, errCh := startServer(t, context.Background(), &Options{
		Addr:     "127.0.0.1:5000",
		CertFile: filepath.Join(dir, "missing.pem"),
		KeyFile:  filepath.Join(dir, "missing-key.pem"),
	})
	require.NotNil(t, srv)
	select {
	case err := <-errCh:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("expected Serve to fail without certificate files")
	}
}

func TestURLBeforeServe(t *testing.T) {
	srv, err := New(newDispatcher(t), nil, nil)
	require.NoError(t, err)
	require.Nil(t, srv.Addr())
	require.Equal(t, "http://127.0.0.1:5000", srv.URL())
}

func TestListenReportsRandomPort(t *testing.T) {
	srv, err := New(newDispatcher(t), nil, &Options{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})
	require.NoError(t, err)

	ln, err := srv.Listen()
	require.NoError(t, err)
	require.Equal(t, ln.Addr(), srv.Addr())
	require.NotEqual(t, "http://127.0.0.1:0", srv.URL())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	resp, err := http.Post(srv.URL()+"/oauth/multilogin", "text/plain", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	cancel()
	require.NoError(t, <-errCh)
}

func writeSelfSignedCert(t *testing.T) (string, string, *x509.CertPool) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "127.0.0.1"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	keyDer, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "127.0.0.1.pem")
	keyFile := filepath.Join(dir, "127.0.0.1-key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDer}), 0600))

	pool := x509.NewCertPool()
	pool.AddCert(cert)
	return certFile, keyFile, pool
}
