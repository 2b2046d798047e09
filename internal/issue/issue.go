// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"
	"maps"
	"slices"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	InputNotFoundId Id = iota + 1
	ManifestInvalidId
	VersionUnparseableId
	ArchiveIOId
	UsageId
	ConfigLoadFailedId
	ReportWriteFailedId
	PermissionDeniedId
)

type MarkdownMsg string

type HttpLink string

// Issue is a catalog entry rendered under a failed command's error line.
type Issue struct {
	id    Id
	mdMsg MarkdownMsg
	links []HttpLink // listed under "See also"
}

func (i *Issue) Id() Id {
	return i.id
}

// Render renders the entry with glamour using stylePath ("dark", "light",
// "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	md := string(i.mdMsg)
	if len(i.links) > 0 {
		md += "\n\n## See also:\n"
		for _, link := range i.links {
			md += "- <" + string(link) + ">\n"
		}
	}
	return render(md, stylePath)
}

var (
	render = glamour.Render

	inputNotFoundIssue = &Issue{
		id: InputNotFoundId,
		mdMsg: `
# Input directory not found!

The first argument must be an existing directory holding your mod archives.

## Things you can try:
- Check the path for typos
- Point at the directory the launcher loads mods from:
~~~
$ jijflattener ~/.minecraft/mods
~~~`,
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# Invalid mod manifest!

An archive has no manifest, or its manifest is not a JSON object with
string ` + "`id`" + ` and ` + "`version`" + ` fields.

## Common issues:
- The file is not a mod (resource packs, shader packs, notes)
- The manifest lists an embedded archive that is not in the archive
- The mod uses a different manifest entry than ` + "`fabric.mod.json`" + `

## Things you can try:
- Move non-mod files out of the input directory, or exclude them:
~~~
$ jijflattener --exclude '*.zip' mods
~~~
- Configure the manifest layout in your config file:
~~~cue
manifest: {
	path:       "fabric.mod.json"
	jars_field: "jars"
	jars_dir:   "META-INF/jars/"
}
~~~`,
		links: []HttpLink{"https://fabricmc.net/wiki/documentation:fabric_mod_json"},
	}

	versionUnparseableIssue = &Issue{
		id: VersionUnparseableId,
		mdMsg: `
# Unparseable mod version!

A manifest carries an empty or blank ` + "`version`" + ` field, so the mod
cannot be ranked against other copies of itself.

## Things you can try:
- Report the broken manifest to the mod's author
- Remove or exclude the archive named in the error`,
	}

	archiveIOIssue = &Issue{
		id: ArchiveIOId,
		mdMsg: `
# Archive could not be read or written!

Opening, extracting, rewriting or copying an archive failed.

## Common issues:
- The file is truncated or is not a zip archive
- An entry name tries to escape the work directory
- The output or work directory is not writable, or the disk is full

## Things you can try:
- Re-download the archive named in the error
- Choose a different work directory:
~~~
$ jijflattener mods out /tmp/jij-work
~~~`,
	}

	usageIssue = &Issue{
		id: UsageId,
		mdMsg: `
# Wrong number of arguments!

## Usage:
~~~
jijflattener <input> [output] [work directory]
~~~

- **output** defaults to ` + "`<input>/flattened`" + `
- **work directory** defaults to ` + "`<output>/.flattenerwork`" + ``,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

Could not load the jijflattener configuration file.

## Configuration file locations:
- Linux: ~/.config/jijflattener/config.cue
- macOS: ~/Library/Application Support/jijflattener/config.cue
- Windows: %APPDATA%\jijflattener\config.cue

## Things you can try:
- Create a default configuration:
~~~
$ jijflattener config init
~~~
- Check the configuration syntax
- Print the effective configuration:
~~~
$ jijflattener config show
~~~`,
	}

	reportWriteFailedIssue = &Issue{
		id: ReportWriteFailedId,
		mdMsg: `
# Failed to write the run report!

The report format is picked from the file extension: ` + "`.json`" + `,
` + "`.yaml`" + `/` + "`.yml`" + ` or ` + "`.toml`" + `.

## Things you can try:
- Use a supported extension:
~~~
$ jijflattener --report flatten.yaml mods
~~~`,
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

jijflattener could not access a file or directory.

## Things you can try:
- Check the permissions of the input, output and work directories
- Make sure no running game instance holds the output files open`,
	}

	issues = map[Id]*Issue{
		inputNotFoundIssue.Id():      inputNotFoundIssue,
		manifestInvalidIssue.Id():    manifestInvalidIssue,
		versionUnparseableIssue.Id(): versionUnparseableIssue,
		archiveIOIssue.Id():          archiveIOIssue,
		usageIssue.Id():              usageIssue,
		configLoadFailedIssue.Id():   configLoadFailedIssue,
		reportWriteFailedIssue.Id():  reportWriteFailedIssue,
		permissionDeniedIssue.Id():   permissionDeniedIssue,
	}
)

// Values returns every catalog entry ordered by Id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return cmp.Compare(a.id, b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
