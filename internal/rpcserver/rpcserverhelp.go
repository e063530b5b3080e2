// Copyright (c) 2015 The btcsuite developers
// Copyright (c) 2016-2020 The Decred developers
// Copyright (c) 2025-2026 The bloomd developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package rpcserver

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/decred/dcrd/dcrjson/v4"

	"github.com/bloomdb/bloomd/rpc/jsonrpc/types"
)

// helpDescsEnUS defines the English descriptions used for the help strings.
var helpDescsEnUS = map[string]string{
	// AddItemsCmd help.
	"additems--synopsis": "Adds items to the named filter, creating the filter when it does not already exist.\n" +
		"Items which are already members of the filter are not counted again.",
	"additems-name":   "The name of the filter to add the items to",
	"additems-items":  "The items to add",
	"additems-create": "Create the filter with the server defaults when it does not already exist",

	// AddItemsResult help.
	"additemsresult-added":   "Whether each of the provided items was newly added to the filter in the same order the items were provided",
	"additemsresult-entries": "The total number of distinct items the filter has accepted",

	// CreateFilterCmd help.
	"createfilter--synopsis": "Creates a new filter under the provided name and optionally seeds it with the provided items.",
	"createfilter-name":      "The name of the filter to create",
	"createfilter-fprate":    "The false positive rate of the filter or 0 for the server default",
	"createfilter-capacity":  "The number of items the initial filter in the chain accepts before the chain grows or 0 to base it on the number of seed items",
	"createfilter-fixed":     "Reject additions beyond the seed items",
	"createfilter-items":     "The items to seed the filter with",

	// CreateFilterResult help.
	"createfilterresult-name":     "The name of the created filter",
	"createfilterresult-capacity": "The number of items the newest filter in the chain accepts before the chain grows",
	"createfilterresult-fprate":   "The false positive rate of the filter",
	"createfilterresult-fixed":    "Whether the filter rejects additions beyond its seed items",
	"createfilterresult-entries":  "The total number of distinct items the filter has accepted",

	// DebugLevelCmd help.
	"debuglevel--synopsis": "Dynamically changes the debug logging level.\n" +
		"The levelspec can either a debug level or of the form:\n" +
		"<subsystem>=<level>,<subsystem2>=<level2>,...\n" +
		"The valid debug levels are trace, debug, info, warn, error, and critical.\n" +
		"The valid subsystems are BMD, FLDB, and RPCS.\n" +
		"Finally the keyword 'show' will return a list of the available subsystems.",
	"debuglevel-levelspec":   "The debug level(s) to use or the keyword 'show'",
	"debuglevel--condition0": "levelspec!=show",
	"debuglevel--condition1": "levelspec=show",
	"debuglevel--result0":    "The string 'Done.'",
	"debuglevel--result1":    "The list of subsystems",

	// DropFilterCmd help.
	"dropfilter--synopsis": "Removes the named filter and all of its data from the store.",
	"dropfilter-name":      "The name of the filter to remove",

	// FilterInfoCmd help.
	"filterinfo--synopsis": "Returns information about the named filter.",
	"filterinfo-name":      "The name of the filter to return information for",

	// FilterInfoResult help.
	"filterinforesult-name":      "The name of the filter",
	"filterinforesult-capacity":  "The number of items the newest filter in the chain accepts before the chain grows",
	"filterinforesult-fprate":    "The false positive rate of the filter",
	"filterinforesult-fixed":     "Whether the filter rejects additions beyond its seed items",
	"filterinforesult-entries":   "The total number of distinct items the filter has accepted",
	"filterinforesult-sizebytes": "The size of the serialized filter in bytes",
	"filterinforesult-hash":      "The BLAKE-256 hash of the serialized filter",
	"filterinforesult-filters":   "Details for every filter in the chain ordered from the newest to the oldest",

	// FilterDetails help.
	"filterdetails-capacity":  "The number of items the filter accepts",
	"filterdetails-hashfuncs": "The number of hash functions the filter uses",
	"filterdetails-sizebits":  "The size of the filter bit array in bits",
	"filterdetails-sizebytes": "The size of the filter bit array in bytes",
	"filterdetails-setbits":   "The number of bits set in the filter bit array",

	// HasItemCmd help.
	"hasitem--synopsis": "Returns whether the provided item is possibly a member of the named filter.\n" +
		"A true result is subject to the false positive rate of the filter while a false result is definitive.",
	"hasitem-name":     "The name of the filter to test",
	"hasitem-item":     "The item to test for membership",
	"hasitem--result0": "Whether the item is possibly a member of the filter",

	// HelpCmd help.
	"help--synopsis":   "Returns a list of all commands or help for a specified command.",
	"help-command":     "The command to retrieve help for",
	"help--condition0": "no command provided",
	"help--condition1": "command specified",
	"help--result0":    "List of commands",
	"help--result1":    "Help for specified command",

	// ListFiltersCmd help.
	"listfilters--synopsis": "Returns the names of all filters in the store.",
	"listfilters--result0":  "List of filter names",

	// NotifyGrowthCmd help.
	"notifygrowth--synopsis": "Request notifications for whenever the chain of a stored filter grows to accept more items.",

	// PingCmd help.
	"ping--synopsis": "Immediately returns to indicate the connection to the server is working.",

	// SessionCmd help.
	"session--synopsis": "Return details regarding a websocket client's current connection session.",

	// SessionResult help.
	"sessionresult-sessionid": "The unique session ID for a client's websocket connection.",

	// StopCmd help.
	"stop--synopsis": "Shutdown bloomd.",
	"stop--result0":  "The string 'bloomd stopping.'",

	// StopNotifyGrowthCmd help.
	"stopnotifygrowth--synopsis": "Cancel registered notifications for whenever the chain of a stored filter grows.",

	// VersionCmd help.
	"version--synopsis":       "Returns the JSON-RPC API version (semver)",
	"version--result0--desc":  "Version objects keyed by the program or API name",
	"version--result0--key":   "Program or API name",
	"version--result0--value": "Object containing the semantic version",

	// VersionResult help.
	"versionresult-versionstring": "The JSON-RPC API version (semver)",
	"versionresult-major":         "The JSON-RPC API major version",
	"versionresult-minor":         "The JSON-RPC API minor version",
	"versionresult-patch":         "The JSON-RPC API patch version",
	"versionresult-prerelease":    "Prerelease info about the current build",
	"versionresult-buildmetadata": "Metadata about the current build",
}

// rpcResultTypes specifies the result types that each RPC command can return.
// This information is used to generate the help.  Each result type must be a
// pointer to the type (or nil to indicate no return value).
var rpcResultTypes = map[types.Method][]interface{}{
	"additems":     {(*types.AddItemsResult)(nil)},
	"createfilter": {(*types.CreateFilterResult)(nil)},
	"debuglevel":   {(*string)(nil), (*string)(nil)},
	"dropfilter":   nil,
	"filterinfo":   {(*types.FilterInfoResult)(nil)},
	"hasitem":      {(*bool)(nil)},
	"help":         {(*string)(nil), (*string)(nil)},
	"listfilters":  {(*[]string)(nil)},
	"ping":         nil,
	"stop":         {(*string)(nil)},
	"version":      {(*map[string]types.VersionResult)(nil)},

	// Websocket commands.
	"notifygrowth":     nil,
	"session":          {(*types.SessionResult)(nil)},
	"stopnotifygrowth": nil,
}

// helpCacher provides a concurrent safe type that provides help and usage for
// the RPC server commands and caches the results for future calls.
type helpCacher struct {
	sync.Mutex
	usage      string
	methodHelp map[types.Method]string
}

// RPCMethodHelp returns an RPC help string for the provided method.
//
// This function is safe for concurrent access.
func (c *helpCacher) RPCMethodHelp(method types.Method) (string, error) {
	c.Lock()
	defer c.Unlock()

	// Return the cached method help if it exists.
	if help, exists := c.methodHelp[method]; exists {
		return help, nil
	}

	// Look up the result types for the method.
	resultTypes, ok := rpcResultTypes[method]
	if !ok {
		return "", errors.New("no result types specified for method " +
			string(method))
	}

	// Generate, cache, and return the help.
	help, err := dcrjson.GenerateHelp(method, helpDescsEnUS, resultTypes...)
	if err != nil {
		return "", err
	}
	c.methodHelp[method] = help
	return help, nil
}

// RPCUsage returns one-line usage for all supported RPC commands.
//
// This function is safe for concurrent access.
func (c *helpCacher) RPCUsage(includeWebsockets bool) (string, error) {
	c.Lock()
	defer c.Unlock()

	// Return the cached usage if it is available.
	if c.usage != "" {
		return c.usage, nil
	}

	// Generate a list of one-line usage for every command.
	usageTexts := make([]string, 0, len(rpcHandlers))
	for k := range rpcHandlers {
		usage, err := dcrjson.MethodUsageText(k)
		if err != nil {
			return "", err
		}
		usageTexts = append(usageTexts, usage)
	}

	// Include websockets commands if requested.
	if includeWebsockets {
		for k := range wsHandlers {
			if _, ok := rpcHandlers[k]; ok {
				continue
			}
			usage, err := dcrjson.MethodUsageText(k)
			if err != nil {
				return "", err
			}
			usageTexts = append(usageTexts, usage)
		}
	}

	sort.Strings(usageTexts)
	c.usage = strings.Join(usageTexts, "\n")
	return c.usage, nil
}

// newHelpCacher returns a new instance of a help cacher which provides help
// and usage for the RPC server commands and caches the results for future
// calls.
func newHelpCacher() *helpCacher {
	return &helpCacher{
		methodHelp: make(map[types.Method]string),
	}
}
