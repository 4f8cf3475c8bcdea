// Copyright 2025 Kadir Pekel
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

// Package builder assembles remote agents from code or configuration.
//
// The fluent API mirrors the configuration file:
//
//	agent, err := builder.NewRemoteAgent("weather").
//	    WithDescription("Weather forecasts").
//	    FromURL("http://localhost:9000").
//	    WithHeader("X-Tenant", "acme").
//	    WithTimeout(30 * time.Second).
//	    Build()
//
// FromConfig builds every agent of a loaded configuration into a Set.
package builder
