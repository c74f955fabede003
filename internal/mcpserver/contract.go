package mcpserver

// ArticleFormatContract describes the Markdown article format that LLM
// consumers should follow when creating or updating articles.
const ArticleFormatContract = `# Arbor Article Format

Articles form a tree. Every article has a title, a unique slug and Markdown
content, and may name one parent article.

## Fields

- **title**: required, 1 to 200 characters. Shown in the tree and breadcrumbs.
- **slug**: lowercase letters, digits and single hyphens (e.g. ` + "`" + `web-development` + "`" + `).
  Optional on create; it is derived from the title when omitted
  ("Getting Started with React!" becomes ` + "`" + `getting-started-with-react` + "`" + `).
  Slugs are unique across all articles.
- **content**: required Markdown body.
- **parent**: optional slug of the parent article. Omit it for a root article.

## Rules

1. An article cannot be its own parent or be moved under one of its descendants.
2. An article with children cannot be deleted.
3. Updates replace title, slug and content. Read the article first when
   changing only one field.

## File form

Articles exported to a vault directory use YAML front matter:

` + "```" + `markdown
---
title: Web Development
slug: web-development
parent: programming
---

Web development involves **HTML**, **CSS** and **JavaScript**.
` + "```" + `
`
