// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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

package sidewinder

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ContentHash computes an xxHash digest of the given content, returned as a
// fixed-width hex string. Empty content hashes to the empty string so callers
// can treat "no content" and "no hash" as the same condition.
func ContentHash(content []byte) string {
	if len(content) == 0 {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(content))
}
