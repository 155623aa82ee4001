/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseServiceType(t *testing.T) {
	for _, name := range []string{"ICMP", "HTTP", "SMB", "FTP", "SSH"} {
		st, err := ParseServiceType(name)
		require.NoError(t, err)
		assert.Equal(t, ServiceType(name), st)
	}

	st, err := ParseServiceType("http")
	require.NoError(t, err)
	assert.Equal(t, ServiceHTTP, st)

	_, err = ParseServiceType("GOPHER")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOPHER")
}

func TestServiceTypeUnmarshalJSONRejectsUnknown(t *testing.T) {
	var st ServiceType

	require.Error(t, json.Unmarshal([]byte(`"TELNET"`), &st))
}

func TestServiceTypeDefaultPort(t *testing.T) {
	cases := map[ServiceType]int{
		ServiceICMP: 0,
		ServiceHTTP: 0,
		ServiceSMB:  445,
		ServiceFTP:  21,
		ServiceSSH:  22,
	}

	for st, want := range cases {
		assert.Equal(t, want, st.DefaultPort(), "port for %s", st)
	}
}

func TestServiceConfigValidateAppliesDefaults(t *testing.T) {
	svc := ServiceConfig{
		Name:        "fileserver",
		ServiceType: ServiceSMB,
		Target:      "files.local",
	}

	require.NoError(t, svc.Validate())

	assert.Equal(t, "/", svc.Location)
	assert.Equal(t, 60*time.Second, time.Duration(svc.Interval))
	assert.Equal(t, 445, svc.EffectivePort())
}

func TestServiceConfigValidateRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		svc  ServiceConfig
	}{
		{
			name: "unknown type",
			svc:  ServiceConfig{Name: "a", ServiceType: "TELNET", Target: "x"},
		},
		{
			name: "empty target",
			svc:  ServiceConfig{Name: "a", ServiceType: ServiceHTTP},
		},
		{
			name: "port out of range",
			svc:  ServiceConfig{Name: "a", ServiceType: ServiceHTTP, Target: "x", Port: 70000},
		},
		{
			name: "negative interval",
			svc:  ServiceConfig{Name: "a", ServiceType: ServiceHTTP, Target: "x", Interval: Duration(-time.Second)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := tt.svc
			require.Error(t, svc.Validate())
		})
	}
}

func TestServiceConfigExplicitPortWins(t *testing.T) {
	svc := ServiceConfig{Name: "alt-ssh", ServiceType: ServiceSSH, Target: "bastion", Port: 2222}

	require.NoError(t, svc.Validate())
	assert.Equal(t, 2222, svc.EffectivePort())
}

func TestMetricsIsZero(t *testing.T) {
	var m Metrics

	assert.True(t, m.IsZero())

	now := time.Now().UTC()
	for _, record := range []Metrics{
		{IsUp: true},
		{TotalUptime: 30},
		{TotalDowntime: 30},
		{LastDowntime: &now},
	} {
		assert.False(t, record.IsZero(), "record %+v", record)
	}
}

func TestMetricsJSONShape(t *testing.T) {
	data, err := json.Marshal(Metrics{})
	require.NoError(t, err)

	assert.JSONEq(t, `{"isup":false,"total_uptime":0,"total_downtime":0,"last_downtime":null}`, string(data))
}
