package mcpserver

// ContentFormat describes the dictionary accepted by create_content and
// returned by search_content and get_content.
const ContentFormat = `# Ansuz Content Format

Every content item is a flat dictionary. Documents hold a list of them:

` + "```" + `yaml
data:
  - category: snippet                # REQUIRED – snippet or solution
    data:                            # REQUIRED – list of lines, or one string
      - docker rm --force redis
    brief: Remove docker image with force
    description: ""
    groups: docker                   # OPTIONAL – defaults to "default"
    tags: [cleanup, docker]          # OPTIONAL – list or comma separated string
    links: [https://docs.docker.com/]
    source: ""
    versions: [docker~=24]
    filename: ""
meta:
  version: "1"
` + "```" + `

A single dictionary or a bare list of dictionaries is accepted as well.

## Rules

1. **category** is ` + "`" + `snippet` + "`" + ` or ` + "`" + `solution` + "`" + `.
2. **data** must contain at least one non-blank line and must differ from the
   unedited category template.
3. **Tags, links and versions** are sets: order and duplicates are dropped.
4. **digest** is computed by the server from category, data, brief,
   description, groups, tags, links, source, versions and filename. Any
   digest sent by the client is ignored. Two items with the same digest are
   duplicates and the second is rejected.
5. **uuid, created and updated** are assigned by the server when missing.
6. Items are addressed by a digest prefix. A prefix matching more than one
   item is rejected; send more characters.

## Search

search_content selects by exactly one mode, first match wins:
keywords, tags, groups, digest, uuid, data (prefix of the content data).
Keywords are case-insensitive regular expressions and every keyword must match.
`
