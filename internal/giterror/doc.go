// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package giterror classifies failures of the ETL run so the CLI can map
// them to exit codes and tell the user what to do next. Classification
// checks the error chain for the sentinels of internal/errors first and
// falls back to inspecting the message, which covers errors produced by
// third-party clients (GraphQL, SQLite driver) that never wrap sentinels.
package giterror
