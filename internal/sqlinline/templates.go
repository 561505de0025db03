package sqlinline

const QSelectTemplateByID = `--sql 6959d6ec-b4ea-4da7-8ee4-6671bf1ea740
select id, coalesce(user_id, ''), name, is_default, coalesce(prompt, ''), coalesce(sections, '[]'::jsonb)
from content_templates
where id = $1::uuid
  and (user_id = $2::text or user_id is null)
limit 1;
`

const QSelectDefaultTemplate = `--sql 8ed2a778-efa9-418d-b4f1-ba4707018fa8
select id, coalesce(user_id, ''), name, is_default, coalesce(prompt, ''), coalesce(sections, '[]'::jsonb)
from content_templates
where user_id = $1::text
  and is_default
order by updated_at desc
limit 1;
`
